package natives

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/drses/frozen-realms-shim/graph"
)

// JSONBundle returns JSON.parse and JSON.stringify.
func JSONBundle(in *graph.Intrinsics) Bundle {
	return NewBundle(
		fn("JSON.parse", 2, JSONParse(in)),
		fn("JSON.stringify", 3, func(c graph.Call) (graph.Value, error) {
			indent := ""
			switch x := c.Arg(2).(type) {
			case float64:
				indent = strings.Repeat(" ", max(0, min(10, int(x))))
			case string:
				indent = x
				if len(indent) > 10 {
					indent = indent[:10]
				}
			}
			s := &stringifier{ctx: c.Context, indent: indent, seen: make(map[*graph.Object]bool)}
			ok, err := s.write(c.Arg(0), "")
			if err != nil {
				return nil, err
			}
			if !ok {
				return graph.Undefined, nil
			}
			return s.buf.String(), nil
		}),
	)
}

// JSONParse returns the correct JSON.parse: every parsed object delegates
// to Object.prototype and "__proto__" is an ordinary key.
func JSONParse(in *graph.Intrinsics) graph.NativeFunc {
	return func(c graph.Call) (graph.Value, error) {
		text, err := argString(c, 0)
		if err != nil {
			return nil, err
		}
		return ParseJSONText(in, text, nil)
	}
}

// KeyHook lets a caller intercept each parsed member before it is defined.
// Returning handled=true skips the default definition.
type KeyHook func(o *graph.Object, key string, v graph.Value) (handled bool, err error)

// ParseJSONText decodes text into graph values, preserving member order.
func ParseJSONText(in *graph.Intrinsics, text string, hook KeyHook) (graph.Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(in, dec, hook)
	if err != nil {
		return nil, syntaxError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, graph.Throw(graph.KindSyntaxError, "unexpected data after JSON value")
	}
	return v, nil
}

func syntaxError(err error) error {
	var thrown *graph.ThrownError
	if errors.As(err, &thrown) {
		return err
	}
	return graph.Throw(graph.KindSyntaxError, "JSON.parse: %v", err)
}

func decodeValue(in *graph.Intrinsics, dec *json.Decoder, hook KeyHook) (graph.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := in.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string")
				}
				v, err := decodeValue(in, dec, hook)
				if err != nil {
					return nil, err
				}
				if hook != nil {
					handled, err := hook(o, key, v)
					if err != nil {
						return nil, err
					}
					if handled {
						continue
					}
				}
				if err := o.DefineOwn(key, graph.DataDescriptor(v, true, true, true)); err != nil {
					return nil, err
				}
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return o, nil
		case '[':
			var elems []graph.Value
			for dec.More() {
				v, err := decodeValue(in, dec, hook)
				if err != nil {
					return nil, err
				}
				elems = append(elems, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return in.NewArray(elems...), nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case string:
		return t, nil
	case bool:
		return t, nil
	case nil:
		return graph.Null, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

type stringifier struct {
	ctx    context.Context
	seen   map[*graph.Object]bool
	indent string
	buf    bytes.Buffer
}

// write serializes v. It reports false when v has no JSON form (undefined
// and functions), letting containers skip or null it.
func (s *stringifier) write(v graph.Value, prefix string) (bool, error) {
	if o, ok := v.(*graph.Object); ok {
		if toJSON, err := o.Get(s.ctx, "toJSON"); err != nil {
			return false, err
		} else if f, isFn := toJSON.(*graph.Object); isFn && f.IsCallable() {
			if v, err = f.Call(s.ctx, o, nil); err != nil {
				return false, err
			}
		} else if inner := o.Internal(); inner != nil {
			v = inner
		}
	}

	switch x := v.(type) {
	case string:
		s.buf.WriteString(quoteJSON(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			s.buf.WriteString("null")
		} else {
			s.buf.WriteString(graph.NumberToString(x))
		}
	case bool:
		s.buf.WriteString(strconv.FormatBool(x))
	case *graph.Object:
		if x.IsCallable() {
			return false, nil
		}
		if s.seen[x] {
			return false, graph.Throw(graph.KindTypeError, "converting circular structure to JSON")
		}
		s.seen[x] = true
		defer delete(s.seen, x)
		if x.Class() == graph.ClassArray {
			return true, s.writeArray(x, prefix)
		}
		return true, s.writeObject(x, prefix)
	default:
		if graph.IsNull(v) {
			s.buf.WriteString("null")
			return true, nil
		}
		return false, nil
	}
	return true, nil
}

func (s *stringifier) writeArray(o *graph.Object, prefix string) error {
	elems, err := graph.ArrayElements(s.ctx, o)
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		s.buf.WriteString("[]")
		return nil
	}
	inner := prefix + s.indent
	s.buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			s.buf.WriteByte(',')
		}
		s.newline(inner)
		ok, err := s.write(e, inner)
		if err != nil {
			return err
		}
		if !ok {
			s.buf.WriteString("null")
		}
	}
	s.newline(prefix)
	s.buf.WriteByte(']')
	return nil
}

func (s *stringifier) writeObject(o *graph.Object, prefix string) error {
	inner := prefix + s.indent
	s.buf.WriteByte('{')
	wrote := false
	for _, k := range o.OwnKeys() {
		d, ok := o.GetOwn(k)
		if !ok || !d.Enumerable {
			continue
		}
		v, err := o.Get(s.ctx, k)
		if err != nil {
			return err
		}
		mark := s.buf.Len()
		if wrote {
			s.buf.WriteByte(',')
		}
		s.newline(inner)
		s.buf.WriteString(quoteJSON(k))
		s.buf.WriteByte(':')
		if s.indent != "" {
			s.buf.WriteByte(' ')
		}
		ok, err = s.write(v, inner)
		if err != nil {
			return err
		}
		if !ok {
			s.buf.Truncate(mark)
			continue
		}
		wrote = true
	}
	if wrote {
		s.newline(prefix)
	}
	s.buf.WriteByte('}')
	return nil
}

func (s *stringifier) newline(prefix string) {
	if s.indent == "" {
		return
	}
	s.buf.WriteByte('\n')
	s.buf.WriteString(prefix)
}

func quoteJSON(str string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
