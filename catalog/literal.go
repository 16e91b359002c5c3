package catalog

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ParseLiteral evaluates a Python-style literal such as
//
//	['Drama', 'Crime']
//	[{'id': 'co0040620', 'name': 'Castle Rock Entertainment'}]
//
// The text is parsed as a Starlark expression, whose literal grammar matches
// Python's. Only data is accepted: strings, numbers, True/False/None, lists,
// tuples and dicts. The result uses string, int64, float64, bool, nil, []any
// and map[string]any.
func ParseLiteral(s string) (any, error) {
	expr, err := syntax.ParseExpr("literal", strings.TrimSpace(s), 0)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			return nil, &LiteralError{Line: int(serr.Pos.Line), Col: int(serr.Pos.Col), Msg: serr.Msg}
		}
		return nil, &LiteralError{Msg: err.Error()}
	}
	if err := checkLiteral(expr); err != nil {
		return nil, err
	}

	thread := &starlark.Thread{Name: "catalog"}
	v, err := starlark.EvalExpr(thread, expr, nil)
	if err != nil {
		start, _ := expr.Span()
		return nil, &LiteralError{Line: int(start.Line), Col: int(start.Col), Msg: err.Error()}
	}
	return toGo(v)
}

// LiteralError reports where a literal stopped making sense.
type LiteralError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LiteralError) Error() string {
	return fmt.Sprintf("literal at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// checkLiteral rejects any node that is not plain data.
func checkLiteral(expr syntax.Expr) error {
	var err error
	syntax.Walk(expr, func(n syntax.Node) bool {
		if n == nil || err != nil {
			return false
		}
		switch n := n.(type) {
		case *syntax.ListExpr, *syntax.TupleExpr, *syntax.DictExpr, *syntax.DictEntry, *syntax.ParenExpr:
			return true
		case *syntax.Literal:
			if n.Token == syntax.STRING || n.Token == syntax.INT || n.Token == syntax.FLOAT {
				return true
			}
		case *syntax.UnaryExpr:
			if n.Op == syntax.MINUS || n.Op == syntax.PLUS {
				return true
			}
		case *syntax.Ident:
			switch n.Name {
			case "True", "False", "None":
				return true
			}
		}
		start, _ := n.Span()
		err = &LiteralError{Line: int(start.Line), Col: int(start.Col), Msg: fmt.Sprintf("%s is not a literal", nodeName(n))}
		return false
	})
	return err
}

func nodeName(n syntax.Node) string {
	switch n := n.(type) {
	case *syntax.Ident:
		return fmt.Sprintf("name %q", n.Name)
	case *syntax.CallExpr:
		return "call"
	case *syntax.BinaryExpr:
		return fmt.Sprintf("operator %s", n.Op)
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", n), "*syntax.")
	}
}

func toGo(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, &LiteralError{Msg: fmt.Sprintf("integer %s out of range", v)}
		}
		return i, nil
	case starlark.Float:
		return float64(v), nil
	case *starlark.List:
		out := make([]any, v.Len())
		for i := range out {
			item, err := toGo(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, elem := range v {
			item, err := toGo(elem)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, kv := range v.Items() {
			k, err := toGo(kv[0])
			if err != nil {
				return nil, err
			}
			val, err := toGo(kv[1])
			if err != nil {
				return nil, err
			}
			key, ok := k.(string)
			if !ok {
				key = fmt.Sprint(k)
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, &LiteralError{Msg: fmt.Sprintf("unsupported value of type %s", v.Type())}
	}
}

// StringList decodes a literal list of strings. An empty cell is an empty list.
func StringList(s string) ([]string, error) {
	items, err := literalList(s)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("item %d: want string, got %T", i, item)
		}
		out = append(out, str)
	}
	return out, nil
}

// NameList decodes a literal list of dicts and returns each dict's "name".
func NameList(s string) ([]string, error) {
	items, err := literalList(s)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		d, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d: want dict, got %T", i, item)
		}
		name, ok := d["name"].(string)
		if !ok {
			return nil, fmt.Errorf("item %d: missing string \"name\"", i)
		}
		out = append(out, name)
	}
	return out, nil
}

func literalList(s string) ([]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseLiteral(s)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("want list, got %T", v)
	}
	return items, nil
}
