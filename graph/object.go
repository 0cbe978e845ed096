package graph

import (
	"context"
	"strconv"
	"sync"
)

// Class tags the internal shape of an object.
type Class int

const (
	ClassObject Class = iota
	ClassFunction
	ClassArray
	ClassError
)

func (c Class) String() string {
	switch c {
	case ClassFunction:
		return "Function"
	case ClassArray:
		return "Array"
	case ClassError:
		return "Error"
	default:
		return "Object"
	}
}

// Call is the activation record handed to a native function.
type Call struct {
	Context   context.Context
	This      Value
	Args      []Value
	Callee    *Object
	Construct bool
}

// Arg returns the i-th argument or Undefined.
func (c Call) Arg(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Undefined
}

// NativeFunc implements the behaviour of a callable object.
type NativeFunc func(Call) (Value, error)

// Descriptor describes one own property. Accessor properties use Get and Set
// and ignore Value and Writable.
type Descriptor struct {
	Value        Value
	Get          *Object
	Set          *Object
	Accessor     bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// DataDescriptor builds a data property descriptor.
func DataDescriptor(v Value, writable, enumerable, configurable bool) Descriptor {
	return Descriptor{Value: normalize(v), Writable: writable, Enumerable: enumerable, Configurable: configurable}
}

// AccessorDescriptor builds an accessor property descriptor.
func AccessorDescriptor(get, set *Object, enumerable, configurable bool) Descriptor {
	return Descriptor{Get: get, Set: set, Accessor: true, Enumerable: enumerable, Configurable: configurable}
}

// Object is a node of the runtime graph.
type Object struct {
	mu         sync.RWMutex
	class      Class
	label      string
	proto      *Object
	props      map[string]*Descriptor
	keys       []string
	extensible bool
	call       NativeFunc
	construct  NativeFunc
	internal   Value
}

// New creates an ordinary, extensible object delegating to proto.
func New(proto *Object) *Object {
	return NewWithClass(ClassObject, proto)
}

// NewWithClass creates an extensible object of the given class.
func NewWithClass(class Class, proto *Object) *Object {
	return &Object{
		class:      class,
		proto:      proto,
		props:      make(map[string]*Descriptor),
		extensible: true,
	}
}

// NewFunction creates a callable object with own "length" and "name".
func NewFunction(proto *Object, name string, length int, fn NativeFunc) *Object {
	o := NewWithClass(ClassFunction, proto)
	o.label = name
	o.call = fn
	o.mustDefine("length", DataDescriptor(float64(length), false, false, true))
	o.mustDefine("name", DataDescriptor(name, false, false, true))
	return o
}

// NewArray creates an array holding elems.
func NewArray(proto *Object, elems ...Value) *Object {
	o := NewWithClass(ClassArray, proto)
	o.mustDefine("length", DataDescriptor(float64(0), true, false, false))
	for i, v := range elems {
		o.mustDefine(strconv.Itoa(i), DataDescriptor(v, true, true, true))
	}
	return o
}

// NewError creates an error object delegating to proto.
func NewError(proto *Object, message string) *Object {
	o := NewWithClass(ClassError, proto)
	if message != "" {
		o.mustDefine("message", DataDescriptor(message, true, false, true))
	}
	return o
}

func (o *Object) mustDefine(name string, d Descriptor) {
	if err := o.DefineOwn(name, d); err != nil {
		panic("graph: " + err.Error())
	}
}

// Class returns the object's class tag.
func (o *Object) Class() Class { return o.class }

// Label returns the diagnostic name of the object.
func (o *Object) Label() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.label
}

// SetLabel sets the diagnostic name of the object.
func (o *Object) SetLabel(label string) {
	o.mu.Lock()
	o.label = label
	o.mu.Unlock()
}

// Internal returns the hidden slot used by natives (e.g. wrapped primitives).
func (o *Object) Internal() Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.internal
}

// SetInternal sets the hidden slot.
func (o *Object) SetInternal(v Value) {
	o.mu.Lock()
	o.internal = v
	o.mu.Unlock()
}

// SetConstructor gives the object [[Construct]] behaviour.
func (o *Object) SetConstructor(fn NativeFunc) {
	o.mu.Lock()
	o.construct = fn
	o.mu.Unlock()
}

// IsCallable reports whether the object can be called.
func (o *Object) IsCallable() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.call != nil
}

// IsConstructor reports whether the object can be used with new.
func (o *Object) IsConstructor() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.construct != nil
}

// Call invokes the object.
func (o *Object) Call(ctx context.Context, this Value, args []Value) (Value, error) {
	o.mu.RLock()
	fn := o.call
	o.mu.RUnlock()
	if fn == nil {
		return nil, Throw(KindTypeError, "%s is not a function", o.shortName())
	}
	v, err := fn(Call{Context: ctx, This: this, Args: args, Callee: o})
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// Construct invokes the object as a constructor.
func (o *Object) Construct(ctx context.Context, args []Value) (Value, error) {
	o.mu.RLock()
	fn := o.construct
	o.mu.RUnlock()
	if fn == nil {
		return nil, Throw(KindTypeError, "%s is not a constructor", o.shortName())
	}
	v, err := fn(Call{Context: ctx, This: Undefined, Args: args, Callee: o, Construct: true})
	if err != nil {
		return nil, err
	}
	return normalize(v), nil
}

// Proto returns the delegation target, or nil.
func (o *Object) Proto() *Object {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.proto
}

// SetProto changes the delegation target. It fails on non-extensible
// objects and when the change would close a delegation cycle.
func (o *Object) SetProto(proto *Object) error {
	for p := proto; p != nil; p = p.Proto() {
		if p == o {
			return Throw(KindTypeError, "cyclic delegation through %s", o.shortName())
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.proto == proto {
		return nil
	}
	if !o.extensible {
		return Throw(KindTypeError, "%s is not extensible", o.nameLocked())
	}
	o.proto = proto
	return nil
}

// IsExtensible reports whether new properties may be added.
func (o *Object) IsExtensible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.extensible
}

// PreventExtensions forbids adding new properties.
func (o *Object) PreventExtensions() {
	o.mu.Lock()
	o.extensible = false
	o.mu.Unlock()
}

// Freeze makes every own property non-configurable and every data property
// non-writable, and prevents extensions.
func (o *Object) Freeze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, d := range o.props {
		d.Configurable = false
		if !d.Accessor {
			d.Writable = false
		}
	}
	o.extensible = false
}

// IsFrozen reports whether Freeze would be a no-op.
func (o *Object) IsFrozen() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.extensible {
		return false
	}
	for _, d := range o.props {
		if d.Configurable || (!d.Accessor && d.Writable) {
			return false
		}
	}
	return true
}

// OwnKeys returns own property names in definition order.
func (o *Object) OwnKeys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// HasOwn reports whether name is an own property.
func (o *Object) HasOwn(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.props[name]
	return ok
}

// GetOwn returns a copy of the own property descriptor for name.
func (o *Object) GetOwn(name string) (Descriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.props[name]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

func (o *Object) lookupData(name string) (Value, bool) {
	for cur := o; cur != nil; cur = cur.Proto() {
		d, ok := cur.GetOwn(name)
		if !ok {
			continue
		}
		if d.Accessor {
			return nil, false
		}
		return d.Value, true
	}
	return nil, false
}

// DefineOwn creates or redefines an own property, enforcing the
// configurability and extensibility invariants.
func (o *Object) DefineOwn(name string, d Descriptor) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.defineLocked(name, d)
}

func (o *Object) defineLocked(name string, d Descriptor) error {
	d.Value = normalize(d.Value)
	if d.Accessor {
		d.Value = Undefined
		d.Writable = false
	}
	cur, exists := o.props[name]
	if !exists {
		if !o.extensible {
			return Throw(KindTypeError, "cannot define property %s, %s is not extensible", name, o.nameLocked())
		}
		if err := o.growArrayLocked(name); err != nil {
			return err
		}
		cp := d
		o.props[name] = &cp
		o.keys = append(o.keys, name)
		return nil
	}
	if !cur.Configurable {
		switch {
		case d.Configurable, d.Enumerable != cur.Enumerable, d.Accessor != cur.Accessor:
			return Throw(KindTypeError, "cannot redefine property: %s", name)
		case d.Accessor && (d.Get != cur.Get || d.Set != cur.Set):
			return Throw(KindTypeError, "cannot redefine property: %s", name)
		case !d.Accessor && !cur.Writable && (d.Writable || !SameValue(d.Value, cur.Value)):
			return Throw(KindTypeError, "cannot redefine property: %s", name)
		}
	}
	if o.class == ClassArray && name == "length" && !d.Accessor {
		if err := o.truncateArrayLocked(d.Value); err != nil {
			return err
		}
	}
	*cur = d
	return nil
}

// Delete removes an own property. Deleting a missing property succeeds;
// deleting a non-configurable one fails.
func (o *Object) Delete(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.props[name]
	if !ok {
		return nil
	}
	if !d.Configurable {
		return Throw(KindTypeError, "cannot delete property '%s' of %s", name, o.nameLocked())
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Get reads a property, following delegation and invoking getters with the
// object as receiver.
func (o *Object) Get(ctx context.Context, name string) (Value, error) {
	return o.GetWithReceiver(ctx, name, o)
}

// GetWithReceiver reads a property starting at o but calls getters with
// receiver as this. It is how primitives borrow prototype methods.
func (o *Object) GetWithReceiver(ctx context.Context, name string, receiver Value) (Value, error) {
	for cur := o; cur != nil; {
		cur.mu.RLock()
		d, ok := cur.props[name]
		var desc Descriptor
		if ok {
			desc = *d
		}
		next := cur.proto
		cur.mu.RUnlock()
		if ok {
			if desc.Accessor {
				if desc.Get == nil {
					return Undefined, nil
				}
				return desc.Get.Call(ctx, receiver, nil)
			}
			return desc.Value, nil
		}
		cur = next
	}
	return Undefined, nil
}

// Set assigns a property with strict-mode semantics: assigning through a
// non-writable or getter-only property, or adding to a non-extensible
// object, fails with a TypeError.
func (o *Object) Set(ctx context.Context, name string, v Value) error {
	for cur := o; cur != nil; {
		cur.mu.RLock()
		d, ok := cur.props[name]
		var desc Descriptor
		if ok {
			desc = *d
		}
		next := cur.proto
		cur.mu.RUnlock()
		if ok {
			if desc.Accessor {
				if desc.Set == nil {
					return Throw(KindTypeError, "cannot set property %s of %s which has only a getter", name, o.shortName())
				}
				_, err := desc.Set.Call(ctx, o, []Value{v})
				return err
			}
			if !desc.Writable {
				return Throw(KindTypeError, "cannot assign to read only property '%s' of %s", name, o.shortName())
			}
			if cur == o {
				return o.writeOwn(name, v)
			}
			break
		}
		cur = next
	}
	return o.addOwn(name, v)
}

func (o *Object) writeOwn(name string, v Value) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	d, ok := o.props[name]
	if !ok {
		return o.defineLocked(name, DataDescriptor(v, true, true, true))
	}
	if d.Accessor || !d.Writable {
		return Throw(KindTypeError, "cannot assign to read only property '%s' of %s", name, o.nameLocked())
	}
	if o.class == ClassArray && name == "length" {
		if err := o.truncateArrayLocked(v); err != nil {
			return err
		}
	}
	d.Value = normalize(v)
	return nil
}

func (o *Object) addOwn(name string, v Value) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.props[name]; ok {
		d := o.props[name]
		if d.Accessor || !d.Writable {
			return Throw(KindTypeError, "cannot assign to read only property '%s' of %s", name, o.nameLocked())
		}
		d.Value = normalize(v)
		return nil
	}
	if !o.extensible {
		return Throw(KindTypeError, "cannot add property %s, %s is not extensible", name, o.nameLocked())
	}
	return o.defineLocked(name, DataDescriptor(v, true, true, true))
}

func (o *Object) growArrayLocked(name string) error {
	if o.class != ClassArray {
		return nil
	}
	idx, ok := arrayIndex(name)
	if !ok {
		return nil
	}
	ld, ok := o.props["length"]
	if !ok {
		return nil
	}
	length, _ := ld.Value.(float64)
	if float64(idx) < length {
		return nil
	}
	if !ld.Writable {
		return Throw(KindTypeError, "cannot add element %d, length of %s is read only", idx, o.nameLocked())
	}
	ld.Value = float64(idx + 1)
	return nil
}

func (o *Object) truncateArrayLocked(v Value) error {
	n, ok := normalize(v).(float64)
	if !ok || n < 0 || n != float64(uint32(n)) {
		return Throw(KindRangeError, "invalid array length")
	}
	ld := o.props["length"]
	if ld == nil {
		return nil
	}
	old, _ := ld.Value.(float64)
	for i := int(old) - 1; i >= int(n); i-- {
		key := strconv.Itoa(i)
		if d, ok := o.props[key]; ok {
			if !d.Configurable {
				return Throw(KindTypeError, "cannot delete element %d of %s", i, o.nameLocked())
			}
			delete(o.props, key)
			for j, k := range o.keys {
				if k == key {
					o.keys = append(o.keys[:j:j], o.keys[j+1:]...)
					break
				}
			}
		}
	}
	return nil
}

// ArrayLength returns the length of an array object, or 0.
func ArrayLength(o *Object) int {
	d, ok := o.GetOwn("length")
	if !ok || d.Accessor {
		return 0
	}
	n, _ := d.Value.(float64)
	return int(n)
}

// ArrayElements reads the elements of an array-like object.
func ArrayElements(ctx context.Context, o *Object) ([]Value, error) {
	lv, err := o.Get(ctx, "length")
	if err != nil {
		return nil, err
	}
	n, err := ToInteger(ctx, lv)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, max(n, 0))
	for i := 0; i < n; i++ {
		v, err := o.Get(ctx, strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func arrayIndex(name string) (int, bool) {
	if name == "" || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return int(n), true
}

func (o *Object) shortName() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.nameLocked()
}

func (o *Object) nameLocked() string {
	if o.label != "" {
		return o.label
	}
	return "object"
}

func normalize(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Undefined
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint32:
		return float64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
