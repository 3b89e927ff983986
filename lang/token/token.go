// Package token defines the lexical token set for corvid's SQL dialect.
package token

// Type identifies a token's lexical category.
type Type int

const (
	ILLEGAL Type = iota
	EOF

	IDENT
	INT
	FLOAT
	STRING

	// operators
	EQ
	NEQ
	LT
	GT
	LE
	GE
	PLUS
	MINUS
	STAR
	SLASH

	// punctuation
	COMMA
	SEMICOLON
	LPAREN
	RPAREN
	DOT

	// keywords
	CREATE
	TABLE
	INSERT
	INTO
	VALUES
	SELECT
	FROM
	WHERE
	UPDATE
	SET
	DELETE
	JOIN
	ON
	GROUP
	ORDER
	BY
	ASC
	DESC
	AND
	PRIMARY
	KEY
	FOREIGN
	REFERENCES
	INT_TYPE
	FLOAT_TYPE
	VARCHAR
	AS
	COUNT
	SUM
	AVG
	NULL
	DROP
)

var names = map[Type]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	EQ: "=", NEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/",
	COMMA: ",", SEMICOLON: ";", LPAREN: "(", RPAREN: ")", DOT: ".",
	CREATE: "CREATE", TABLE: "TABLE", INSERT: "INSERT", INTO: "INTO",
	VALUES: "VALUES", SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE",
	UPDATE: "UPDATE", SET: "SET", DELETE: "DELETE", JOIN: "JOIN", ON: "ON",
	GROUP: "GROUP", ORDER: "ORDER", BY: "BY", ASC: "ASC", DESC: "DESC",
	AND: "AND", PRIMARY: "PRIMARY", KEY: "KEY", FOREIGN: "FOREIGN",
	REFERENCES: "REFERENCES", INT_TYPE: "INT", FLOAT_TYPE: "FLOAT",
	VARCHAR: "VARCHAR", AS: "AS", COUNT: "COUNT", SUM: "SUM", AVG: "AVG",
	NULL: "NULL", DROP: "DROP",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// keywords maps the upper-cased lexeme to its keyword token type.
// Keyword matching is case-insensitive; identifiers are not.
var keywords = map[string]Type{
	"CREATE": CREATE, "TABLE": TABLE, "INSERT": INSERT, "INTO": INTO,
	"VALUES": VALUES, "SELECT": SELECT, "FROM": FROM, "WHERE": WHERE,
	"UPDATE": UPDATE, "SET": SET, "DELETE": DELETE, "JOIN": JOIN, "ON": ON,
	"GROUP": GROUP, "ORDER": ORDER, "BY": BY, "ASC": ASC, "DESC": DESC,
	"AND": AND, "PRIMARY": PRIMARY, "KEY": KEY, "FOREIGN": FOREIGN,
	"REFERENCES": REFERENCES, "INT": INT_TYPE, "FLOAT": FLOAT_TYPE,
	"VARCHAR": VARCHAR, "AS": AS, "COUNT": COUNT, "SUM": SUM, "AVG": AVG,
	"NULL": NULL, "DROP": DROP,
}

// LookupIdent returns the keyword token type for upper, or IDENT if it
// isn't a reserved word.
func LookupIdent(upper string) Type {
	if t, ok := keywords[upper]; ok {
		return t
	}
	return IDENT
}

// Token is one lexical unit with its source position.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
}
