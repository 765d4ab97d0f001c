package hostapi

import (
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"vellum/internal/dom"
)

// nodeKey is the hidden property holding the wrapped *html.Node.
const nodeKey = "__node"

// binding exposes a dom.Document to scripts with a small subset of the DOM
// API. Wrappers are created per access; compare nodes with isSameNode.
type binding struct {
	vm  *goja.Runtime
	doc *dom.Document
}

func (b *binding) document() *goja.Object {
	vm := b.vm
	d := vm.NewObject()

	b.getter(d, "head", func() goja.Value { return b.wrap(b.doc.Head()) })
	b.getter(d, "body", func() goja.Value { return b.wrap(b.doc.Body()) })
	b.getter(d, "documentElement", func() goja.Value { return b.wrap(b.doc.Body().Parent) })

	_ = d.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := call.Argument(0).String()
		if tag == "" || goja.IsUndefined(call.Argument(0)) {
			panic(vm.NewTypeError("tag name is required"))
		}
		return b.wrap(b.doc.CreateElement(tag))
	})
	_ = d.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return b.wrap(b.doc.CreateText(call.Argument(0).String()))
	})
	_ = d.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		n, err := b.doc.SelectFirst(call.Argument(0).String())
		if err != nil {
			panic(b.syntaxError(err))
		}
		return b.wrap(n)
	})
	_ = d.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		nodes, err := b.doc.Select(call.Argument(0).String())
		if err != nil {
			panic(b.syntaxError(err))
		}
		return b.wrapAll(nodes)
	})
	_ = d.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		var found *html.Node
		walk(b.doc.Root(), func(n *html.Node) bool {
			if n.Type == html.ElementNode && dom.Attr(n, "id") == id {
				found = n
				return false
			}
			return true
		})
		return b.wrap(found)
	})
	return d
}

// syntaxError builds the SyntaxError browsers throw for bad selectors.
func (b *binding) syntaxError(err error) *goja.Object {
	ctor := b.vm.Get("SyntaxError").ToObject(b.vm)
	obj, _ := b.vm.New(ctor, b.vm.ToValue(err.Error()))
	return obj
}

func (b *binding) wrap(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	vm := b.vm
	el := vm.NewObject()
	_ = el.DefineDataProperty(nodeKey, vm.ToValue(n), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	switch n.Type {
	case html.ElementNode:
		_ = el.Set("nodeType", 1)
		_ = el.Set("tagName", strings.ToUpper(n.Data))
	case html.TextNode:
		_ = el.Set("nodeType", 3)
	default:
		_ = el.Set("nodeType", 9)
	}

	b.getter(el, "parentNode", func() goja.Value { return b.wrap(n.Parent) })
	b.getter(el, "children", func() goja.Value {
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				kids = append(kids, c)
			}
		}
		return b.wrapAll(kids)
	})
	b.accessor(el, "textContent",
		func() goja.Value { return vm.ToValue(dom.TextContent(n)) },
		func(v goja.Value) { dom.SetText(n, v.String()) })
	b.accessor(el, "className",
		func() goja.Value { return vm.ToValue(dom.Attr(n, "class")) },
		func(v goja.Value) { dom.SetAttr(n, "class", v.String()) })
	b.accessor(el, "id",
		func() goja.Value { return vm.ToValue(dom.Attr(n, "id")) },
		func(v goja.Value) { dom.SetAttr(n, "id", v.String()) })

	_ = el.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrap(call.Argument(0))
		if child == n || isAncestor(child, n) {
			panic(vm.NewTypeError("appendChild would create a cycle"))
		}
		b.doc.Append(n, child)
		return call.Argument(0)
	})
	_ = el.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrap(call.Argument(0))
		if child.Parent != n {
			panic(vm.NewTypeError("node is not a child"))
		}
		b.doc.Remove(child)
		return call.Argument(0)
	})
	_ = el.Set("remove", func(call goja.FunctionCall) goja.Value {
		b.doc.Remove(n)
		return goja.Undefined()
	})
	_ = el.Set("replaceChildren", func(call goja.FunctionCall) goja.Value {
		kids := make([]*html.Node, len(call.Arguments))
		for i, arg := range call.Arguments {
			kids[i] = b.unwrap(arg)
		}
		b.doc.ClearChildren(n)
		for _, k := range kids {
			b.doc.Append(n, k)
		}
		return goja.Undefined()
	})
	_ = el.Set("isSameNode", func(call goja.FunctionCall) goja.Value {
		other, ok := b.node(call.Argument(0))
		return vm.ToValue(ok && other == n)
	})
	_ = el.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		dom.SetAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		key := strings.ToLower(call.Argument(0).String())
		if !dom.HasAttr(n, key) {
			return goja.Null()
		}
		return vm.ToValue(dom.Attr(n, key))
	})
	_ = el.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(dom.HasAttr(n, strings.ToLower(call.Argument(0).String())))
	})

	classList := vm.NewObject()
	_ = classList.Set("add", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			dom.AddClass(n, arg.String())
		}
		return goja.Undefined()
	})
	_ = classList.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(dom.HasClass(n, call.Argument(0).String()))
	})
	_ = el.Set("classList", classList)

	return el
}

func (b *binding) wrapAll(nodes []*html.Node) goja.Value {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = b.wrap(n)
	}
	return b.vm.NewArray(out...)
}

// node extracts the wrapped node from v.
func (b *binding) node(v goja.Value) (*html.Node, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	raw := obj.Get(nodeKey)
	if raw == nil {
		return nil, false
	}
	n, ok := raw.Export().(*html.Node)
	return n, ok && n != nil
}

func (b *binding) unwrap(v goja.Value) *html.Node {
	n, ok := b.node(v)
	if !ok {
		panic(b.vm.NewTypeError("argument is not a node"))
	}
	return n
}

func (b *binding) getter(obj *goja.Object, name string, get func() goja.Value) {
	_ = obj.DefineAccessorProperty(name,
		b.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() }),
		nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (b *binding) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	_ = obj.DefineAccessorProperty(name,
		b.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() }),
		b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		}),
		goja.FLAG_TRUE, goja.FLAG_TRUE)
}

// isAncestor reports whether a is an ancestor of n.
func isAncestor(a, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == a {
			return true
		}
	}
	return false
}

// walk visits n and its descendants until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
