package eval

import (
	"bytes"
	"strings"
	"testing"
)

func runSource(t *testing.T, src string) (Object, string) {
	t.Helper()
	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	result := ip.Interpret(src, "test.sb")
	return result, buf.String()
}

func runOK(t *testing.T, src string) string {
	t.Helper()
	result, out := runSource(t, src)
	if err, ok := result.(*Error); ok {
		t.Fatalf("unexpected error: %s", err.Inspect())
	}
	if ts, ok := result.(*ThrownSignal); ok {
		t.Fatalf("unexpected uncaught throw: %s", ts.Value.Inspect())
	}
	return out
}

func expectErrKind(t *testing.T, src string, kind ErrorKind) *Error {
	t.Helper()
	result, _ := runSource(t, src)
	err, ok := result.(*Error)
	if !ok {
		t.Fatalf("expected %s error, got %T (%s)", kind, result, result.Inspect())
	}
	if err.ErrKind != kind {
		t.Fatalf("error kind = %s, want %s (message: %s)", err.ErrKind, kind, err.Message)
	}
	return err
}

func TestCompoundAssignment(t *testing.T) {
	out := runOK(t, `int32 x = 5; x += 3; print(x);`)
	if out != "8\n" {
		t.Errorf("output = %q, want %q", out, "8\n")
	}
}

func TestFunctionCallLeavesCallerUntouched(t *testing.T) {
	out := runOK(t, `
int64 a = 100;
int64 add(int64 a, int64 b) { return a + b; }
print(add(2, 3));
print(a);`)
	if out != "5\n100\n" {
		t.Errorf("output = %q, want %q", out, "5\n100\n")
	}
}

func TestForContinueStillRunsIncrement(t *testing.T) {
	out := runOK(t, `
for (int32 i = 0; i < 3; i++) {
  if (i == 1) { continue; }
  print(i);
}`)
	if out != "0\n2\n" {
		t.Errorf("output = %q, want %q", out, "0\n2\n")
	}
}

func TestBreakStopsOnlyNearestLoop(t *testing.T) {
	out := runOK(t, `
for (int32 i = 0; i < 2; i++) {
  for (int32 j = 0; j < 10; j++) {
    if (j == 1) { break; }
    print(i + "-" + j);
  }
}`)
	if out != "0-0\n1-0\n" {
		t.Errorf("output = %q, want %q", out, "0-0\n1-0\n")
	}
}

func TestWhileAndDoWhile(t *testing.T) {
	out := runOK(t, `
int32 n = 3;
while (n > 0) { print(n); n--; }
do { print("once"); } while (false);`)
	if out != "3\n2\n1\nonce\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTryCatchPrintsAndContinues(t *testing.T) {
	out := runOK(t, `
try { throw "boom"; } catch (e) { print(e); }
print("after");`)
	if out != "boom\nafter\n" {
		t.Errorf("output = %q, want %q", out, "boom\nafter\n")
	}
}

func TestFinallyAlwaysRunsAndOverrides(t *testing.T) {
	out := runOK(t, `
string f() {
  try {
    return "try";
  } finally {
    return "finally";
  }
}
print(f());

try { throw "x"; } catch (e) { } finally { print("cleanup"); }`)
	if out != "finally\ncleanup\n" {
		t.Errorf("output = %q, want %q", out, "finally\ncleanup\n")
	}
}

func TestUncaughtThrowEscapes(t *testing.T) {
	result, _ := runSource(t, `
void inner() { throw "lost"; }
void outer() { inner(); }
outer();`)
	ts, ok := result.(*ThrownSignal)
	if !ok {
		t.Fatalf("expected ThrownSignal, got %T", result)
	}
	if ts.Value.Inspect() != "lost" {
		t.Errorf("thrown value = %s", ts.Value.Inspect())
	}
	if len(ts.Trace) != 2 {
		t.Fatalf("trace depth = %d, want 2", len(ts.Trace))
	}
	if ts.Trace[0].Function != "outer" || ts.Trace[1].Function != "inner" {
		t.Errorf("trace = %v", ts.Trace)
	}
}

func TestSwitchFallthroughRequiresBreak(t *testing.T) {
	out := runOK(t, `
int32 x = 2;
switch (x) {
  case 1:
    print("one");
    break;
  case 2:
    print("two");
  case 3:
    print("three");
    break;
  default:
    print("other");
}`)
	if out != "two\nthree\n" {
		t.Errorf("output = %q, want %q", out, "two\nthree\n")
	}
}

func TestSwitchDefaultRegardlessOfPosition(t *testing.T) {
	out := runOK(t, `
switch (99) {
  default:
    print("none");
    break;
  case 1:
    print("one");
}`)
	if out != "none\n" {
		t.Errorf("output = %q, want %q", out, "none\n")
	}
}

func TestForeach(t *testing.T) {
	out := runOK(t, `
int64 sum = 0;
foreach (x in [1, 2, 3]) { sum += x; }
print(sum);
foreach (ch in "ab") { print(ch); }`)
	if out != "6\na\nb\n" {
		t.Errorf("output = %q", out)
	}
}

func TestClosuresShareCapturedState(t *testing.T) {
	out := runOK(t, `
var makeCounter() {
  int32 n = 0;
  int32 inc() { n += 1; return n; }
  return inc;
}
var c = makeCounter();
print(c());
print(c());
var d = makeCounter();
print(d());`)
	if out != "1\n2\n1\n" {
		t.Errorf("output = %q, want %q", out, "1\n2\n1\n")
	}
}

func TestPostfixYieldsPreStepValue(t *testing.T) {
	out := runOK(t, `
int32 i = 5;
print(i++);
print(i);
print(i--);
print(i);`)
	if out != "5\n6\n6\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestIndexedCompoundAssignment(t *testing.T) {
	out := runOK(t, `
int32[] xs = [1, 2, 3];
xs[1] += 10;
print(xs[1]);
var m = {"hits": 1};
m["hits"] += 1;
print(m["hits"]);`)
	if out != "12\n2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStringConcatenationStringifies(t *testing.T) {
	out := runOK(t, `print("n=" + 42 + " ok=" + true);`)
	if out != "n=42 ok=true\n" {
		t.Errorf("output = %q", out)
	}
}

func TestDeclaredWidthNarrowsValue(t *testing.T) {
	out := runOK(t, `
uint8 a = 200;
uint8 b = 100;
print(a + b);`)
	if out != "44\n" {
		t.Errorf("uint8 addition should wrap: output = %q, want %q", out, "44\n")
	}
}

func TestDeclarationOverflowIsChecked(t *testing.T) {
	expectErrKind(t, `uint8 c = 300;`, ErrCastOverflow)
	expectErrKind(t, `int8 c = -200;`, ErrCastOverflow)
}

func TestHoistedFunctions(t *testing.T) {
	out := runOK(t, `
print(twice(21));
int64 twice(int64 n) { return n * 2; }`)
	if out != "42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRecursion(t *testing.T) {
	out := runOK(t, `
int64 fib(int64 n) {
  if (n < 2) { return n; }
  return fib(n - 1) + fib(n - 2);
}
print(fib(10));`)
	if out != "55\n" {
		t.Errorf("fib(10) output = %q, want 55", out)
	}
}

func TestRunawayRecursionOverflows(t *testing.T) {
	expectErrKind(t, `
void loop() { loop(); }
loop();`, ErrStackOverflow)
}

func TestShortCircuitSkipsRightSide(t *testing.T) {
	out := runOK(t, `
bool touched() { print("touched"); return true; }
if (false && touched()) { }
if (true || touched()) { }
print("done");`)
	if out != "done\n" {
		t.Errorf("short-circuit evaluated the right side: %q", out)
	}
}

func TestNullComparisons(t *testing.T) {
	out := runOK(t, `
var x = null;
print(x == null);
print(x != null);
print(5 == null);`)
	if out != "true\nfalse\nfalse\n" {
		t.Errorf("output = %q", out)
	}
	expectErrKind(t, `var y = null; print(y < 1);`, ErrTypeMismatch)
}

func TestErrorKinds(t *testing.T) {
	expectErrKind(t, `print(missing);`, ErrUndefinedReference)
	expectErrKind(t, `int32 x = 1; int32 x = 2;`, ErrRedeclaration)
	expectErrKind(t, `const int32 K = 1; K = 2;`, ErrConstViolation)
	expectErrKind(t, `int64 f(int64 a) { return a; } f(1, 2);`, ErrArityMismatch)
	expectErrKind(t, `print(1 / 0);`, ErrArithmetic)
	expectErrKind(t, `print("a" - "b");`, ErrTypeMismatch)
	expectErrKind(t, `int32 x = 1; x();`, ErrTypeMismatch)
	expectErrKind(t, `break;`, ErrControlFlowMisuse)
	expectErrKind(t, `continue;`, ErrControlFlowMisuse)
	expectErrKind(t, `return 1;`, ErrControlFlowMisuse)
	expectErrKind(t, `[1, 2][5];`, ErrTypeMismatch)
	expectErrKind(t, `import "no/such/file.sb";`, ErrModuleResolution)
	expectErrKind(t, `external int32 f(int32 x);`, ErrNativeLink)
}

func TestRuntimeErrorsAreNotCatchable(t *testing.T) {
	result, _ := runSource(t, `
try {
  print(1 / 0);
} catch (e) {
  print("caught");
}`)
	err, ok := result.(*Error)
	if !ok {
		t.Fatalf("internal errors must bypass catch, got %T", result)
	}
	if err.ErrKind != ErrArithmetic {
		t.Errorf("kind = %s, want ArithmeticError", err.ErrKind)
	}
}

func TestBlockScoping(t *testing.T) {
	out := runOK(t, `
int32 x = 1;
if (true) {
  int32 x = 2;
  print(x);
}
print(x);`)
	if out != "2\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestThrownInstanceMessageRendering(t *testing.T) {
	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	result := ip.Interpret(`
class AppError {
  var message = "";
  AppError(string msg) { this.message = msg; }
  string getMessage() { return "app: " + this.message; }
}
void fail() { throw new AppError("disk full"); }
fail();`, "test.sb")

	ts, ok := result.(*ThrownSignal)
	if !ok {
		t.Fatalf("expected ThrownSignal, got %T", result)
	}
	rendered := ip.RenderThrown(ts)
	if !strings.Contains(rendered, "app: disk full") {
		t.Errorf("rendering should use getMessage(): %q", rendered)
	}
	if !strings.Contains(rendered, "at fail() in test.sb:line") {
		t.Errorf("rendering should include call frames: %q", rendered)
	}
}

func TestErrorCarriesPositionAndRenderedCaret(t *testing.T) {
	ip := New()
	src := `int32 x = 5;
print(missing);`
	result := ip.Interpret(src, "test.sb")
	err, ok := result.(*Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if err.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", err.Pos.Line)
	}
	rendered := err.Render(src)
	if !strings.Contains(rendered, "print(missing);") || !strings.Contains(rendered, "^") {
		t.Errorf("rendering should show the source line with a caret:\n%s", rendered)
	}
}

func TestReplStateIsPersistent(t *testing.T) {
	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := ip.Interpret(`int32 count = 1;`, "<repl:1>"); isError(r) {
		t.Fatalf("line 1 failed: %s", r.Inspect())
	}
	if r := ip.Interpret(`count += 1; print(count);`, "<repl:2>"); isError(r) {
		t.Fatalf("line 2 failed: %s", r.Inspect())
	}
	if buf.String() != "2\n" {
		t.Errorf("output = %q, want %q", buf.String(), "2\n")
	}
}

func TestArgsList(t *testing.T) {
	ip := New()
	ip.SetArgs([]string{"one", "two"})
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := ip.Interpret(`print(len(ARGS), ARGS[0], ARGS[1]);`, "test.sb"); isError(r) {
		t.Fatalf("failed: %s", r.Inspect())
	}
	if buf.String() != "2 one two\n" {
		t.Errorf("output = %q", buf.String())
	}
	if r := ip.Interpret(`ARGS = [];`, "test.sb"); !isError(r) || r.(*Error).ErrKind != ErrConstViolation {
		t.Error("ARGS must be constant")
	}
}

func TestBuiltins(t *testing.T) {
	out := runOK(t, `
print(len("hello"));
print(typeof(1.5));
print(str(42) + "!");
print(upper("abc"), lower("DEF"), trim("  x  "));
var parts = split("a,b,c", ",");
print(len(parts), parts[2]);
print(join([1, 2, 3], "-"));
var m = {"a": 1};
print(has(m, "a"), has(m, "b"));
print(cast(300, "int16"));`)
	want := "5\nfloat64\n42!\nABC def x\n3 c\n1-2-3\ntrue false\n300\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestBuiltinsResolveAfterUserDefinitions(t *testing.T) {
	out := runOK(t, `
int64 len(string s) { return 99; }
print(len("abc"));
print(typeof(1));`)
	if out != "99\nint64\n" {
		t.Errorf("user definitions must shadow builtins: %q", out)
	}
}

func TestThrowPropagatesThroughOperands(t *testing.T) {
	out := runOK(t, `
int64 f() { throw "boom"; }
try {
  int64 x = f() + 1;
  print(x);
} catch (e) {
  print("caught " + e);
}`)
	if out != "caught boom\n" {
		t.Errorf("a throw inside an operand must stay catchable: %q", out)
	}
}

func TestThrowPropagatesThroughConditions(t *testing.T) {
	out := runOK(t, `
bool g() { throw "cond"; }
try {
  if (g()) { print("took-branch"); }
} catch (e) {
  print(e);
}
try {
  while (g()) { print("looped"); }
} catch (e) {
  print(e);
}`)
	if out != "cond\ncond\n" {
		t.Errorf("a throw in a condition must not be swallowed: %q", out)
	}
}

func TestThrowPropagatesThroughArgumentsAndLiterals(t *testing.T) {
	out := runOK(t, `
int64 h() { throw "deep"; }
try { print(1, h()); } catch (e) { print(e); }
try { var xs = [1, h()]; } catch (e) { print(e); }
try { var m = {"k": h()}; } catch (e) { print(e); }`)
	if out != "deep\ndeep\ndeep\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCompoundIndexAssignmentResolvesTargetOnce(t *testing.T) {
	out := runOK(t, `
int32 i = 0;
int32[] xs = [10, 20];
xs[i++] += 5;
print(xs[0], xs[1], i);`)
	if out != "15 20 1\n" {
		t.Errorf("index side effects must run once and read/write one slot: %q", out)
	}
}

func TestCompoundMemberAssignmentEvaluatesObjectOnce(t *testing.T) {
	out := runOK(t, `
int32 calls = 0;
class Box { int32 v = 1; }
var b = new Box();
var pick() { calls += 1; return b; }
pick().v += 10;
print(b.v, calls);`)
	if out != "11 1\n" {
		t.Errorf("member target object must be evaluated once: %q", out)
	}
}

func TestMostNegativeIntegerLiteral(t *testing.T) {
	out := runOK(t, `
int64 m = -9223372036854775808;
print(m);
print(-9223372036854775808 < 0);`)
	if out != "-9223372036854775808\ntrue\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFinallyBreakStopsLoopWhenTryCompletes(t *testing.T) {
	out := runOK(t, `
for (int32 i = 0; i < 5; i++) {
  try { print(i); } finally {
    if (i == 1) { break; }
  }
}
print("done");`)
	if out != "0\n1\ndone\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFinallyBreakDoesNotCancelPendingThrow(t *testing.T) {
	out := runOK(t, `
try {
  while (true) {
    try { throw "kept"; } finally { break; }
  }
} catch (e) {
  print(e);
}`)
	if out != "kept\n" {
		t.Errorf("only return and throw from finally override: %q", out)
	}
}

func TestPasswordAndTokenBuiltins(t *testing.T) {
	out := runOK(t, `
var hash = hashPassword("secret");
print(verifyPassword("secret", hash));
print(verifyPassword("wrong", hash));
var tok = jwtSign({"sub": "alice"}, "key");
var claims = jwtVerify(tok, "key");
print(claims["sub"]);
print(jwtVerify(tok, "other-key") == null);`)
	want := "true\nfalse\nalice\ntrue\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
