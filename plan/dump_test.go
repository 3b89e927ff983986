package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidsql/corvid/lang/ast"
	"github.com/corvidsql/corvid/plan"
)

func TestDumpSeqScanContainsTableAndAlias(t *testing.T) {
	scan := &plan.SeqScan{Table: "users", Alias: "u", Schema: usersSchema()}
	out, err := plan.Dump(scan)
	require.NoError(t, err)
	require.Contains(t, string(out), "SeqScan")
	require.Contains(t, string(out), "users")
	require.Contains(t, string(out), "alias: u")
}

func TestDumpNestedJoinIncludesBothChildren(t *testing.T) {
	left := &plan.SeqScan{Table: "orders", Alias: "o", Schema: ordersSchema()}
	right := &plan.SeqScan{Table: "users", Alias: "u", Schema: usersSchema()}
	on := &ast.BinOp{Op: "=", Left: &ast.Column{Qualifier: "o", Name: "customer"}, Right: &ast.Column{Qualifier: "u", Name: "id"}}
	join := &plan.NestedLoopJoin{Left: left, Right: right, Predicate: on}
	out, err := plan.Dump(join)
	require.NoError(t, err)
	require.Contains(t, string(out), "NestedLoopJoin")
	require.Contains(t, string(out), "orders")
	require.Contains(t, string(out), "users")
}
