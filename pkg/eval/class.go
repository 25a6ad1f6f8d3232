package eval

import (
	"github.com/sable-lang/sable/pkg/ast"
	"github.com/sable-lang/sable/pkg/token"
)

// evalClassDecl builds the class value. Field initializers are evaluated
// once here; each construction copies them into the new instance. Methods
// close over the static environment so bare static names resolve inside
// method bodies.
func (ip *Interpreter) evalClassDecl(node *ast.ClassDecl, env *Environment) Object {
	class := &Class{
		Name:    node.Name.Value,
		Methods: make(map[string]*Function),
		Statics: NewEnclosedEnvironment(env),
	}

	for _, f := range node.Fields {
		var init Object = NULL
		if f.Value != nil {
			init = ip.Eval(f.Value, env)
			if isSignal(init) {
				return init
			}
		}
		init, errObj := ip.coerceDeclared(init, f.TypeName, f.IsArray, f.Name.Token)
		if errObj != nil {
			return errObj
		}
		if f.Static {
			if !class.Statics.Define(f.Name.Value, init, false, f.TypeName, f.IsArray) {
				return ip.errorAt(ErrRedeclaration, f.Name.Token, "duplicate static field %q", f.Name.Value)
			}
			continue
		}
		for _, existing := range class.Fields {
			if existing.Name == f.Name.Value {
				return ip.errorAt(ErrRedeclaration, f.Name.Token, "duplicate field %q", f.Name.Value)
			}
		}
		class.Fields = append(class.Fields, FieldSpec{Name: f.Name.Value, Private: f.Private, Init: init})
	}

	for _, m := range node.Methods {
		fn := &Function{
			Name:       m.Name.Value,
			ReturnType: m.ReturnType,
			Parameters: m.Parameters,
			Body:       m.Body,
			Env:        class.Statics,
			Static:     m.Static,
		}
		if m.Static {
			if !class.Statics.Define(m.Name.Value, fn, false, m.ReturnType, false) {
				return ip.errorAt(ErrRedeclaration, m.Name.Token, "duplicate static member %q", m.Name.Value)
			}
			continue
		}
		if _, exists := class.Methods[m.Name.Value]; exists {
			return ip.errorAt(ErrRedeclaration, m.Name.Token, "duplicate method %q", m.Name.Value)
		}
		class.Methods[m.Name.Value] = fn
	}

	if node.Constructor != nil {
		class.Constructor = &Function{
			Name:       node.Name.Value,
			ReturnType: "void",
			Parameters: node.Constructor.Parameters,
			Body:       node.Constructor.Body,
			Env:        class.Statics,
		}
	}
	if node.Destructor != nil {
		class.Destructor = &Function{
			Name:       "~" + node.Name.Value,
			ReturnType: "void",
			Body:       node.Destructor.Body,
			Env:        class.Statics,
		}
	}

	if !env.Define(node.Name.Value, class, true, "class", false) {
		return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined in this scope", node.Name.Value)
	}
	return NULL
}

func (ip *Interpreter) evalNewExpression(node *ast.NewExpression, env *Environment) Object {
	resolved := ip.Eval(node.Class, env)
	if isAbort(resolved) {
		return resolved
	}
	class, ok := resolved.(*Class)
	if !ok {
		return ip.errorAt(ErrTypeMismatch, node.Token, "new requires a class, got %s", typeName(resolved))
	}

	args := make([]Object, 0, len(node.Arguments))
	for _, a := range node.Arguments {
		v := ip.Eval(a, env)
		if isAbort(v) {
			return v
		}
		args = append(args, v)
	}
	return ip.instantiate(class, args, node.Token)
}

func (ip *Interpreter) instantiate(class *Class, args []Object, tok token.Token) Object {
	inst := &Instance{Class: class, Fields: NewEnvironment()}
	for _, f := range class.Fields {
		inst.Fields.Define(f.Name, copyValue(f.Init), false, typeName(f.Init), false)
	}

	if class.Constructor != nil {
		result := ip.callFunction(class.Constructor, inst, args, tok)
		if isSignal(result) {
			return result
		}
	} else if len(args) != 0 {
		return ip.errorAt(ErrArityMismatch, tok, "class %s has no constructor but got %d argument(s)",
			class.Name, len(args))
	}
	return inst
}

// destroyInstance runs the destructor if the class declares one.
func (ip *Interpreter) destroyInstance(inst *Instance, tok token.Token) Object {
	if inst.Class.Destructor == nil {
		return NULL
	}
	return ip.callFunction(inst.Class.Destructor, inst, nil, tok)
}

// copyValue gives each instance its own list/map storage for field
// initializers; everything else is immutable or intentionally shared.
func copyValue(o Object) Object {
	switch v := o.(type) {
	case *List:
		elems := make([]Object, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = copyValue(e)
		}
		return &List{Elements: elems}
	case *Map:
		pairs := make(map[string]Object, len(v.Pairs))
		for k, e := range v.Pairs {
			pairs[k] = copyValue(e)
		}
		return &Map{Pairs: pairs}
	}
	return o
}
