package eval

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func (ip *Interpreter) errorPos(kind ErrorKind, pos Position, format string, args ...interface{}) *Error {
	return &Error{
		ErrKind: kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Trace:   ip.snapshotFrames(),
	}
}

// builtins is the fallback lookup behind the environment chain; scripts can
// shadow any of these with their own definitions. Populated in init because
// several entries reach back into the evaluator, which itself consults this
// map when resolving identifiers.
var builtins map[string]*Builtin

func init() {
	builtins = map[string]*Builtin{
		"print":          {Name: "print", Fn: builtinPrint},
		"len":            {Name: "len", Fn: builtinLen},
		"typeof":         {Name: "typeof", Fn: builtinTypeof},
		"str":            {Name: "str", Fn: builtinStr},
		"cast":           {Name: "cast", Fn: builtinCast},
		"truthy":         {Name: "truthy", Fn: builtinBool},
		"destroy":        {Name: "destroy", Fn: builtinDestroy},
		"append":         {Name: "append", Fn: builtinAppend},
		"pop":            {Name: "pop", Fn: builtinPop},
		"keys":           {Name: "keys", Fn: builtinKeys},
		"has":            {Name: "has", Fn: builtinHas},
		"remove":         {Name: "remove", Fn: builtinRemove},
		"split":          {Name: "split", Fn: builtinSplit},
		"join":           {Name: "join", Fn: builtinJoin},
		"upper":          {Name: "upper", Fn: builtinUpper},
		"lower":          {Name: "lower", Fn: builtinLower},
		"trim":           {Name: "trim", Fn: builtinTrim},
		"env":            {Name: "env", Fn: builtinEnv},
		"clock":          {Name: "clock", Fn: builtinClock},
		"hashPassword":   {Name: "hashPassword", Fn: builtinHashPassword},
		"verifyPassword": {Name: "verifyPassword", Fn: builtinVerifyPassword},
		"jwtSign":        {Name: "jwtSign", Fn: builtinJWTSign},
		"jwtVerify":      {Name: "jwtVerify", Fn: builtinJWTVerify},
	}
}

func builtinPrint(ip *Interpreter, pos Position, args []Object) Object {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Inspect()
	}
	fmt.Fprintln(ip.stdout, strings.Join(parts, " "))
	return NULL
}

func builtinLen(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "len expects 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case *String:
		return &Int{Value: int64(len(v.Value)), NK: NumInt64}
	case *List:
		return &Int{Value: int64(len(v.Elements)), NK: NumInt64}
	case *Map:
		return &Int{Value: int64(len(v.Pairs)), NK: NumInt64}
	}
	return ip.errorPos(ErrTypeMismatch, pos, "len is not defined for %s", typeName(args[0]))
}

func builtinTypeof(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "typeof expects 1 argument, got %d", len(args))
	}
	return &String{Value: typeName(args[0])}
}

func builtinStr(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "str expects 1 argument, got %d", len(args))
	}
	return &String{Value: args[0].Inspect()}
}

func builtinBool(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "truthy expects 1 argument, got %d", len(args))
	}
	return nativeBool(Truthy(args[0]))
}

func builtinCast(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "cast expects 2 arguments, got %d", len(args))
	}
	target, ok := args[1].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "cast target must be a type name string")
	}
	out, oe := Cast(args[0], target.Value)
	if oe != nil {
		return ip.errorPos(oe.kind, pos, "%s", oe.msg)
	}
	return out
}

func builtinDestroy(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "destroy expects 1 argument, got %d", len(args))
	}
	inst, ok := args[0].(*Instance)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "destroy expects an instance, got %s", typeName(args[0]))
	}
	return ip.destroyInstance(inst, posToken(pos))
}

func builtinAppend(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) < 2 {
		return ip.errorPos(ErrArityMismatch, pos, "append expects at least 2 arguments, got %d", len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "append expects a list, got %s", typeName(args[0]))
	}
	list.Elements = append(list.Elements, args[1:]...)
	return list
}

func builtinPop(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "pop expects 1 argument, got %d", len(args))
	}
	list, ok := args[0].(*List)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "pop expects a list, got %s", typeName(args[0]))
	}
	if len(list.Elements) == 0 {
		return ip.errorPos(ErrTypeMismatch, pos, "pop on an empty list")
	}
	last := list.Elements[len(list.Elements)-1]
	list.Elements = list.Elements[:len(list.Elements)-1]
	return last
}

func builtinKeys(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "keys expects 1 argument, got %d", len(args))
	}
	m, ok := args[0].(*Map)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "keys expects a map, got %s", typeName(args[0]))
	}
	elems := make([]Object, 0, len(m.Pairs))
	for k := range m.Pairs {
		elems = append(elems, &String{Value: k})
	}
	return &List{Elements: elems}
}

func builtinHas(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "has expects 2 arguments, got %d", len(args))
	}
	m, ok := args[0].(*Map)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "has expects a map, got %s", typeName(args[0]))
	}
	key, ok := args[1].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "map keys are strings, got %s", typeName(args[1]))
	}
	_, found := m.Pairs[key.Value]
	return nativeBool(found)
}

func builtinRemove(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "remove expects 2 arguments, got %d", len(args))
	}
	m, ok := args[0].(*Map)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "remove expects a map, got %s", typeName(args[0]))
	}
	key, ok := args[1].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "map keys are strings, got %s", typeName(args[1]))
	}
	_, found := m.Pairs[key.Value]
	delete(m.Pairs, key.Value)
	return nativeBool(found)
}

func builtinSplit(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "split expects 2 arguments, got %d", len(args))
	}
	s, ok1 := args[0].(*String)
	sep, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return ip.errorPos(ErrTypeMismatch, pos, "split expects two strings")
	}
	parts := strings.Split(s.Value, sep.Value)
	elems := make([]Object, len(parts))
	for i, p := range parts {
		elems[i] = &String{Value: p}
	}
	return &List{Elements: elems}
}

func builtinJoin(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "join expects 2 arguments, got %d", len(args))
	}
	list, ok1 := args[0].(*List)
	sep, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return ip.errorPos(ErrTypeMismatch, pos, "join expects a list and a string")
	}
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		parts[i] = e.Inspect()
	}
	return &String{Value: strings.Join(parts, sep.Value)}
}

func builtinUpper(ip *Interpreter, pos Position, args []Object) Object {
	return stringUnary(ip, pos, args, "upper", strings.ToUpper)
}

func builtinLower(ip *Interpreter, pos Position, args []Object) Object {
	return stringUnary(ip, pos, args, "lower", strings.ToLower)
}

func builtinTrim(ip *Interpreter, pos Position, args []Object) Object {
	return stringUnary(ip, pos, args, "trim", strings.TrimSpace)
}

func stringUnary(ip *Interpreter, pos Position, args []Object, name string, fn func(string) string) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "%s expects 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "%s expects a string, got %s", name, typeName(args[0]))
	}
	return &String{Value: fn(s.Value)}
}

func builtinEnv(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "env expects 1 argument, got %d", len(args))
	}
	name, ok := args[0].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "env expects a string, got %s", typeName(args[0]))
	}
	v, found := os.LookupEnv(name.Value)
	if !found {
		return NULL
	}
	return &String{Value: v}
}

func builtinClock(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 0 {
		return ip.errorPos(ErrArityMismatch, pos, "clock expects no arguments, got %d", len(args))
	}
	return &Float{Value: float64(time.Now().UnixNano()) / 1e9, NK: NumFloat64}
}

func builtinHashPassword(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 1 {
		return ip.errorPos(ErrArityMismatch, pos, "hashPassword expects 1 argument, got %d", len(args))
	}
	pw, ok := args[0].(*String)
	if !ok {
		return ip.errorPos(ErrTypeMismatch, pos, "hashPassword expects a string, got %s", typeName(args[0]))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw.Value), bcrypt.DefaultCost)
	if err != nil {
		return ip.errorPos(ErrTypeMismatch, pos, "hashPassword failed: %v", err)
	}
	return &String{Value: string(hash)}
}

func builtinVerifyPassword(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "verifyPassword expects 2 arguments, got %d", len(args))
	}
	pw, ok1 := args[0].(*String)
	hash, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return ip.errorPos(ErrTypeMismatch, pos, "verifyPassword expects two strings")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash.Value), []byte(pw.Value))
	return nativeBool(err == nil)
}

// builtinJWTSign issues an HS256 token from a claims map. Numeric claim
// values cross as float64, which is what the JWT wire format uses anyway.
func builtinJWTSign(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "jwtSign expects 2 arguments, got %d", len(args))
	}
	payload, ok1 := args[0].(*Map)
	secret, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return ip.errorPos(ErrTypeMismatch, pos, "jwtSign expects a map and a secret string")
	}

	claims := jwt.MapClaims{}
	for k, v := range payload.Pairs {
		switch val := v.(type) {
		case *String:
			claims[k] = val.Value
		case *Bool:
			claims[k] = val.Value
		case *Int:
			claims[k] = float64(val.Value)
		case *Uint:
			claims[k] = float64(val.Value)
		case *Float:
			claims[k] = val.Value
		default:
			claims[k] = v.Inspect()
		}
	}
	if _, exists := claims["exp"]; !exists {
		claims["exp"] = float64(time.Now().Add(24 * time.Hour).Unix())
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret.Value))
	if err != nil {
		return ip.errorPos(ErrTypeMismatch, pos, "jwtSign failed: %v", err)
	}
	return &String{Value: signed}
}

// builtinJWTVerify returns the claims map for a valid token and null for an
// invalid or expired one.
func builtinJWTVerify(ip *Interpreter, pos Position, args []Object) Object {
	if len(args) != 2 {
		return ip.errorPos(ErrArityMismatch, pos, "jwtVerify expects 2 arguments, got %d", len(args))
	}
	raw, ok1 := args[0].(*String)
	secret, ok2 := args[1].(*String)
	if !ok1 || !ok2 {
		return ip.errorPos(ErrTypeMismatch, pos, "jwtVerify expects two strings")
	}

	parsed, err := jwt.Parse(raw.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret.Value), nil
	})
	if err != nil || !parsed.Valid {
		return NULL
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return NULL
	}

	pairs := make(map[string]Object, len(claims))
	for k, v := range claims {
		switch val := v.(type) {
		case string:
			pairs[k] = &String{Value: val}
		case bool:
			pairs[k] = nativeBool(val)
		case float64:
			pairs[k] = &Float{Value: val, NK: NumFloat64}
		default:
			pairs[k] = &String{Value: fmt.Sprintf("%v", val)}
		}
	}
	return &Map{Pairs: pairs}
}
