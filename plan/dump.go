package plan

import "gopkg.in/yaml.v2"

// dumpNode is the YAML-friendly mirror of a Node tree; plan.Node
// itself is not marshaled directly since its fields mix ast.Expr
// interfaces yaml.v2 cannot tag automatically.
type dumpNode struct {
	Op       string      `yaml:"op"`
	Table    string      `yaml:"table,omitempty"`
	Alias    string      `yaml:"alias,omitempty"`
	Pred     string      `yaml:"predicate,omitempty"`
	GroupKey string      `yaml:"group_key,omitempty"`
	SortKey  string      `yaml:"sort_key,omitempty"`
	Desc     bool        `yaml:"desc,omitempty"`
	Columns  []string    `yaml:"columns,omitempty"`
	Children []*dumpNode `yaml:"children,omitempty"`
}

func describe(n Node) *dumpNode {
	switch v := n.(type) {
	case *SeqScan:
		d := &dumpNode{Op: "SeqScan", Table: v.Table, Alias: v.Alias}
		if v.Predicate != nil {
			d.Pred = v.Predicate.String()
		}
		return d
	case *Filter:
		return &dumpNode{Op: "Filter", Pred: v.Predicate.String(), Children: []*dumpNode{describe(v.Child)}}
	case *NestedLoopJoin:
		return &dumpNode{Op: "NestedLoopJoin", Pred: v.Predicate.String(), Children: []*dumpNode{describe(v.Left), describe(v.Right)}}
	case *Project:
		cols := make([]string, len(v.Items))
		for i, it := range v.Items {
			cols[i] = it.OutName
		}
		return &dumpNode{Op: "Project", Columns: cols, Children: []*dumpNode{describe(v.Child)}}
	case *Aggregate:
		cols := make([]string, len(v.Aggs))
		for i, a := range v.Aggs {
			cols[i] = a.OutName
		}
		return &dumpNode{Op: "Aggregate", GroupKey: v.GroupKey, Columns: cols, Children: []*dumpNode{describe(v.Child)}}
	case *Sort:
		return &dumpNode{Op: "Sort", SortKey: v.Key, Desc: v.Desc, Children: []*dumpNode{describe(v.Child)}}
	case *Insert:
		return &dumpNode{Op: "Insert", Table: v.Table}
	case *Update:
		return &dumpNode{Op: "Update", Table: v.Table}
	case *Delete:
		return &dumpNode{Op: "Delete", Table: v.Table}
	case *CreateTable:
		return &dumpNode{Op: "CreateTable", Table: v.Schema.TableName}
	case *DropTable:
		return &dumpNode{Op: "DropTable", Table: v.Table}
	default:
		return &dumpNode{Op: "?"}
	}
}

// Dump renders n as a YAML plan tree, for writing to log/plan-<n>.yaml
// (spec.md §4.14).
func Dump(n Node) ([]byte, error) {
	return yaml.Marshal(describe(n))
}
