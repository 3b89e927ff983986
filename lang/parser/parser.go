// Package parser implements a recursive-descent, LL(1) parser over
// corvid's token stream, producing an ast.Statement per input
// statement. Unlike a parser that aborts on the first syntax error,
// it recovers at statement boundaries and reports a catalogue of
// structured diagnostic hints (spec.md §4.2) so that one bad
// statement in a script does not prevent the rest from parsing.
package parser

import (
	"strconv"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/lang/lexer"
	"github.com/corvidsql/corvid/lang/token"
	"github.com/corvidsql/corvid/sqlval"
)

// Diagnostic is one recovered parse error: a structured hint plus the
// position that triggered it.
type Diagnostic struct {
	Hint     string
	Location sqlval.Location
}

func (d Diagnostic) Error() string {
	return d.Location.String() + ": " + d.Hint
}

// Parser turns a token stream into statements, collecting Diagnostics
// for malformed statements instead of stopping at the first one.
type Parser struct {
	lex *lexer.Lexer

	cur  token.Token
	peek token.Token

	diagnostics []Diagnostic
	lexErr      error // set if the lexer ever fails; fatal, not recoverable
}

// New creates a Parser over src.
func New(src string) *Parser {
	p := &Parser{lex: lexer.New(src)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	tok, err := p.lex.NextToken()
	if err != nil && p.lexErr == nil {
		p.lexErr = err
	}
	p.peek = tok
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) loc() sqlval.Location {
	return sqlval.Location{Line: p.cur.Line, Column: p.cur.Column}
}

// ParseProgram parses every statement in the source, recovering from
// malformed statements at the next ';'. It returns every statement
// that parsed cleanly, plus every diagnostic recorded along the way.
// A lexer failure is unrecoverable and returned as err.
func (p *Parser) ParseProgram() ([]ast.Statement, []Diagnostic, error) {
	var stmts []ast.Statement
	for !p.curIs(token.EOF) {
		if p.lexErr != nil {
			return stmts, p.diagnostics, p.lexErr
		}
		stmt, ok := p.parseStatement()
		if ok {
			stmts = append(stmts, stmt)
		}
		if p.lexErr != nil {
			return stmts, p.diagnostics, p.lexErr
		}
		if !p.curIs(token.SEMICOLON) {
			p.emit("statements must end with `;`")
			p.recoverToSemicolon()
		}
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
	}
	return stmts, p.diagnostics, nil
}

func (p *Parser) emit(hint string) {
	p.diagnostics = append(p.diagnostics, Diagnostic{Hint: hint, Location: p.loc()})
}

// recoverToSemicolon consumes tokens up to (but not past) the next ';'
// or EOF, so a later statement still gets a chance to parse.
func (p *Parser) recoverToSemicolon() {
	for !p.curIs(token.SEMICOLON) && !p.curIs(token.EOF) {
		p.advance()
	}
}

func (p *Parser) parseStatement() (ast.Statement, bool) {
	switch p.cur.Type {
	case token.CREATE:
		return p.parseCreateTable()
	case token.INSERT:
		return p.parseInsert()
	case token.SELECT:
		return p.parseSelect()
	case token.UPDATE:
		return p.parseUpdate()
	case token.DELETE:
		return p.parseDelete()
	case token.DROP:
		return p.parseDropTable()
	default:
		p.emit("expected a statement (CREATE, INSERT, SELECT, UPDATE, DELETE, DROP)")
		p.recoverToSemicolon()
		return nil, false
	}
}

// --- CREATE TABLE ---

func (p *Parser) parseCreateTable() (ast.Statement, bool) {
	p.advance() // CREATE
	if !p.curIs(token.TABLE) {
		p.emit("expected TABLE after CREATE")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance() // TABLE
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after CREATE TABLE")
		p.recoverToSemicolon()
		return nil, false
	}
	stmt := &ast.CreateTable{Table: p.cur.Literal}
	p.advance()
	if !p.curIs(token.LPAREN) {
		p.emit("expected '(' after table name")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()

	for {
		if p.curIs(token.PRIMARY) || p.curIs(token.FOREIGN) {
			c, ok := p.parseTableConstraint()
			if !ok {
				p.recoverToSemicolon()
				return nil, false
			}
			stmt.Constraints = append(stmt.Constraints, c)
		} else {
			col, ok := p.parseColumnDef()
			if !ok {
				p.recoverToSemicolon()
				return nil, false
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if !p.curIs(token.RPAREN) {
		p.emit("expected ')' to close column list")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	return stmt, true
}

func (p *Parser) parseColumnDef() (ast.ColumnDef, bool) {
	if !p.curIs(token.IDENT) {
		p.emit("expected a column name")
		return ast.ColumnDef{}, false
	}
	col := ast.ColumnDef{Name: p.cur.Literal}
	p.advance()
	switch p.cur.Type {
	case token.INT_TYPE:
		col.Type = sqlval.TypeInt
		p.advance()
	case token.FLOAT_TYPE:
		col.Type = sqlval.TypeFloat
		p.advance()
	case token.VARCHAR:
		col.Type = sqlval.TypeVarchar
		p.advance()
		if p.curIs(token.LPAREN) {
			p.advance()
			if !p.curIs(token.INT) {
				p.emit("expected an integer length for VARCHAR(n)")
				return ast.ColumnDef{}, false
			}
			n, _ := strconv.Atoi(p.cur.Literal)
			col.MaxLen = n
			p.advance()
			if !p.curIs(token.RPAREN) {
				p.emit("expected ')' after VARCHAR length")
				return ast.ColumnDef{}, false
			}
			p.advance()
		}
	default:
		p.emit("expected a column type (INT, FLOAT, VARCHAR)")
		return ast.ColumnDef{}, false
	}
	if p.curIs(token.PRIMARY) {
		p.advance()
		if !p.curIs(token.KEY) {
			p.emit("expected KEY after PRIMARY")
			return ast.ColumnDef{}, false
		}
		p.advance()
		col.PrimaryKey = true
	}
	return col, true
}

func (p *Parser) parseTableConstraint() (ast.TableConstraint, bool) {
	if p.curIs(token.PRIMARY) {
		p.advance()
		if !p.curIs(token.KEY) {
			p.emit("expected KEY after PRIMARY")
			return ast.TableConstraint{}, false
		}
		p.advance()
		if !p.curIs(token.LPAREN) {
			p.emit("expected '(' after PRIMARY KEY")
			return ast.TableConstraint{}, false
		}
		p.advance()
		if !p.curIs(token.IDENT) {
			p.emit("expected a column name in PRIMARY KEY(...)")
			return ast.TableConstraint{}, false
		}
		col := p.cur.Literal
		p.advance()
		if !p.curIs(token.RPAREN) {
			p.emit("expected ')' after PRIMARY KEY column")
			return ast.TableConstraint{}, false
		}
		p.advance()
		return ast.TableConstraint{PrimaryKeyCol: col}, true
	}

	// FOREIGN KEY(col) REFERENCES table(col)
	p.advance() // FOREIGN
	if !p.curIs(token.KEY) {
		p.emit("expected KEY after FOREIGN")
		return ast.TableConstraint{}, false
	}
	p.advance()
	if !p.curIs(token.LPAREN) {
		p.emit("expected '(' after FOREIGN KEY")
		return ast.TableConstraint{}, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a column name in FOREIGN KEY(...)")
		return ast.TableConstraint{}, false
	}
	localCol := p.cur.Literal
	p.advance()
	if !p.curIs(token.RPAREN) {
		p.emit("expected ')' after FOREIGN KEY column")
		return ast.TableConstraint{}, false
	}
	p.advance()
	if !p.curIs(token.REFERENCES) {
		p.emit("expected REFERENCES after FOREIGN KEY(...)")
		return ast.TableConstraint{}, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after REFERENCES")
		return ast.TableConstraint{}, false
	}
	refTable := p.cur.Literal
	p.advance()
	if !p.curIs(token.LPAREN) {
		p.emit("expected '(' after REFERENCES table")
		return ast.TableConstraint{}, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a column name after REFERENCES table(")
		return ast.TableConstraint{}, false
	}
	refCol := p.cur.Literal
	p.advance()
	if !p.curIs(token.RPAREN) {
		p.emit("expected ')' after REFERENCES column")
		return ast.TableConstraint{}, false
	}
	p.advance()
	return ast.TableConstraint{ForeignKeyCol: localCol, RefTable: refTable, RefColumn: refCol}, true
}

// --- DROP TABLE ---

func (p *Parser) parseDropTable() (ast.Statement, bool) {
	p.advance() // DROP
	if !p.curIs(token.TABLE) {
		p.emit("expected TABLE after DROP")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after DROP TABLE")
		p.recoverToSemicolon()
		return nil, false
	}
	stmt := &ast.DropTable{Table: p.cur.Literal}
	p.advance()
	return stmt, true
}

// --- INSERT ---

func (p *Parser) parseInsert() (ast.Statement, bool) {
	p.advance() // INSERT
	if !p.curIs(token.INTO) {
		p.emit("expected INTO after INSERT")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after INSERT INTO")
		p.recoverToSemicolon()
		return nil, false
	}
	stmt := &ast.Insert{Table: p.cur.Literal}
	p.advance()

	if p.curIs(token.LPAREN) {
		p.advance()
		for {
			if !p.curIs(token.IDENT) {
				p.emit("expected a column name in the INSERT column list")
				p.recoverToSemicolon()
				return nil, false
			}
			stmt.Columns = append(stmt.Columns, p.cur.Literal)
			p.advance()
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if !p.curIs(token.RPAREN) {
			p.emit("expected ')' to close the INSERT column list")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
	}

	if !p.curIs(token.VALUES) {
		p.emit("expected VALUES")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()

	for {
		if !p.curIs(token.LPAREN) {
			p.emit("expected '(' to start a VALUES row")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		var row []ast.Expr
		for {
			e := p.parseArith()
			if e == nil {
				p.recoverToSemicolon()
				return nil, false
			}
			row = append(row, e)
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if !p.curIs(token.RPAREN) {
			p.emit("expected ')' to close a VALUES row")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		stmt.Rows = append(stmt.Rows, row)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return stmt, true
}

// --- SELECT ---

func (p *Parser) parseSelect() (ast.Statement, bool) {
	p.advance() // SELECT
	stmt := &ast.Select{}

	if p.curIs(token.FROM) {
		p.emit("missing select list; use `*` or column names")
		p.recoverToSemicolon()
		return nil, false
	}

	for {
		item, ok := p.parseSelectItem()
		if !ok {
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.Columns = append(stmt.Columns, item)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}

	if !p.curIs(token.FROM) {
		p.emit("expected FROM after the select list")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	from, ok := p.parseTableRef()
	if !ok {
		p.recoverToSemicolon()
		return nil, false
	}
	stmt.From = from

	if p.curIs(token.JOIN) {
		p.advance()
		join, ok := p.parseTableRef()
		if !ok {
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.Join = &join
		if !p.curIs(token.ON) {
			p.emit("after JOIN expected ON condition")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		cond := p.parseCond()
		if cond == nil {
			p.emit("after ON/WHERE expected a boolean condition")
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.On = cond
	}

	if p.curIs(token.WHERE) {
		p.advance()
		cond := p.parseCond()
		if cond == nil {
			p.emit("after ON/WHERE expected a boolean condition")
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.Where = cond
	}

	if p.curIs(token.GROUP) {
		p.advance()
		if !p.curIs(token.BY) {
			p.emit("expected BY after GROUP")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		if !p.curIs(token.IDENT) {
			p.emit("after ORDER BY/GROUP BY expected a column name")
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.GroupBy = p.cur.Literal
		p.advance()
	}

	if p.curIs(token.ORDER) {
		p.advance()
		if !p.curIs(token.BY) {
			p.emit("expected BY after ORDER")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		if !p.curIs(token.IDENT) {
			p.emit("after ORDER BY/GROUP BY expected a column name")
			p.recoverToSemicolon()
			return nil, false
		}
		ok := ast.OrderKey{Column: p.cur.Literal}
		p.advance()
		if p.curIs(token.DESC) {
			ok.Desc = true
			p.advance()
		} else if p.curIs(token.ASC) {
			p.advance()
		}
		stmt.OrderBy = &ok
	}

	return stmt, true
}

func (p *Parser) parseSelectItem() (ast.SelectItem, bool) {
	if p.curIs(token.STAR) {
		p.advance()
		return ast.SelectItem{Star: true}, true
	}
	e := p.parseArithOrAgg()
	if e == nil {
		p.emit("expected an expression in the select list")
		return ast.SelectItem{}, false
	}
	item := ast.SelectItem{Expr: e}
	if p.curIs(token.AS) {
		p.advance()
		if !p.curIs(token.IDENT) {
			p.emit("expected an alias name after AS")
			return ast.SelectItem{}, false
		}
		item.Alias = p.cur.Literal
		p.advance()
	}
	return item, true
}

func (p *Parser) parseTableRef() (ast.TableRef, bool) {
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name")
		return ast.TableRef{}, false
	}
	ref := ast.TableRef{Table: p.cur.Literal}
	p.advance()
	if p.curIs(token.IDENT) {
		ref.Alias = p.cur.Literal
		p.advance()
	}
	return ref, true
}

// --- UPDATE ---

func (p *Parser) parseUpdate() (ast.Statement, bool) {
	p.advance() // UPDATE
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after UPDATE")
		p.recoverToSemicolon()
		return nil, false
	}
	stmt := &ast.Update{Table: p.cur.Literal}
	p.advance()
	if !p.curIs(token.SET) {
		p.emit("expected SET after UPDATE table name")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	for {
		if !p.curIs(token.IDENT) {
			p.emit("expected a column name in SET list")
			p.recoverToSemicolon()
			return nil, false
		}
		a := ast.Assignment{Column: p.cur.Literal}
		p.advance()
		if !p.curIs(token.EQ) {
			p.emit("expected '=' in SET assignment")
			p.recoverToSemicolon()
			return nil, false
		}
		p.advance()
		val := p.parseArith()
		if val == nil {
			p.recoverToSemicolon()
			return nil, false
		}
		a.Value = val
		stmt.Assignments = append(stmt.Assignments, a)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if p.curIs(token.WHERE) {
		p.advance()
		cond := p.parseCond()
		if cond == nil {
			p.emit("after ON/WHERE expected a boolean condition")
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.Where = cond
	}
	return stmt, true
}

// --- DELETE ---

func (p *Parser) parseDelete() (ast.Statement, bool) {
	p.advance() // DELETE
	if !p.curIs(token.FROM) {
		p.emit("expected FROM after DELETE")
		p.recoverToSemicolon()
		return nil, false
	}
	p.advance()
	if !p.curIs(token.IDENT) {
		p.emit("expected a table name after DELETE FROM")
		p.recoverToSemicolon()
		return nil, false
	}
	stmt := &ast.Delete{Table: p.cur.Literal}
	p.advance()
	if p.curIs(token.WHERE) {
		p.advance()
		cond := p.parseCond()
		if cond == nil {
			p.emit("after ON/WHERE expected a boolean condition")
			p.recoverToSemicolon()
			return nil, false
		}
		stmt.Where = cond
	}
	return stmt, true
}

// --- Expressions ---

// parseCond parses `pred { AND pred }`.
func (p *Parser) parseCond() ast.Expr {
	left := p.parsePred()
	if left == nil {
		return nil
	}
	for p.curIs(token.AND) {
		p.advance()
		right := p.parsePred()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: "AND", Left: left, Right: right}
	}
	return left
}

var compareOps = map[token.Type]string{
	token.EQ: "=", token.NEQ: "!=", token.LT: "<", token.GT: ">",
	token.LE: "<=", token.GE: ">=",
}

// parsePred parses `expr op expr`.
func (p *Parser) parsePred() ast.Expr {
	left := p.parseArith()
	if left == nil {
		return nil
	}
	op, ok := compareOps[p.cur.Type]
	if !ok {
		p.emit("expected a comparison operator (= != < > <= >=)")
		return nil
	}
	p.advance()
	right := p.parseArith()
	if right == nil {
		return nil
	}
	return &ast.BinOp{Op: op, Left: left, Right: right}
}

// parseArithOrAgg parses a select-list expression, which may be an
// aggregate function call or a plain arithmetic expression.
func (p *Parser) parseArithOrAgg() ast.Expr {
	if agg, ok := p.tryParseAgg(); ok {
		return agg
	}
	return p.parseArith()
}

func (p *Parser) tryParseAgg() (ast.Expr, bool) {
	var kind ast.AggKind
	switch p.cur.Type {
	case token.COUNT:
		kind = ast.AggCount
	case token.SUM:
		kind = ast.AggSum
	case token.AVG:
		kind = ast.AggAvg
	default:
		return nil, false
	}
	if !p.peekIs(token.LPAREN) {
		return nil, false
	}
	p.advance() // kind
	p.advance() // (
	if kind == ast.AggCount && p.curIs(token.STAR) {
		p.advance()
		if !p.curIs(token.RPAREN) {
			p.emit("expected ')' after COUNT(*)")
			return nil, true
		}
		p.advance()
		return &ast.Agg{Kind: ast.AggCount, Star: true}, true
	}
	arg := p.parseArith()
	if arg == nil {
		return nil, true
	}
	if !p.curIs(token.RPAREN) {
		p.emit("expected ')' to close aggregate argument")
		return nil, true
	}
	p.advance()
	return &ast.Agg{Kind: kind, Arg: arg}, true
}

// parseArith parses `term { (+|-) term }`.
func (p *Parser) parseArith() ast.Expr {
	left := p.parseTerm()
	if left == nil {
		return nil
	}
	for p.curIs(token.PLUS) || p.curIs(token.MINUS) {
		op := p.cur.Literal
		p.advance()
		right := p.parseTerm()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right}
	}
	return left
}

// parseTerm parses `primary { (*|/) primary }`.
func (p *Parser) parseTerm() ast.Expr {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}
	for p.curIs(token.STAR) || p.curIs(token.SLASH) {
		op := p.cur.Literal
		p.advance()
		right := p.parsePrimary()
		if right == nil {
			return nil
		}
		left = &ast.BinOp{Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Type {
	case token.LPAREN:
		p.advance()
		e := p.parseArith()
		if e == nil {
			return nil
		}
		if !p.curIs(token.RPAREN) {
			p.emit("expected ')' to close parenthesized expression")
			return nil
		}
		p.advance()
		return e
	case token.IDENT:
		name := p.cur.Literal
		p.advance()
		if p.curIs(token.DOT) {
			p.advance()
			if !p.curIs(token.IDENT) {
				p.emit("expected a column name after '.'")
				return nil
			}
			col := p.cur.Literal
			p.advance()
			return &ast.Column{Qualifier: name, Name: col}
		}
		return &ast.Column{Name: name}
	case token.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			p.emit("invalid integer literal " + p.cur.Literal)
			return nil
		}
		p.advance()
		return &ast.Literal{Value: sqlval.NewInt(n)}
	case token.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			p.emit("invalid float literal " + p.cur.Literal)
			return nil
		}
		p.advance()
		return &ast.Literal{Value: sqlval.NewFloat(f)}
	case token.STRING:
		s := p.cur.Literal
		p.advance()
		return &ast.Literal{Value: sqlval.NewVarchar(s)}
	case token.NULL:
		p.advance()
		return &ast.Literal{Value: sqlval.Null}
	case token.MINUS:
		p.advance()
		e := p.parsePrimary()
		if e == nil {
			return nil
		}
		return &ast.BinOp{Op: "-", Left: &ast.Literal{Value: sqlval.NewInt(0)}, Right: e}
	default:
		p.emit("expected an expression")
		return nil
	}
}
