package eval

import (
	"testing"
)

func TestClassConstructionAndMethods(t *testing.T) {
	out := runOK(t, `
class Point {
  int32 x = 0;
  int32 y = 0;
  Point(int32 x, int32 y) {
    this.x = x;
    this.y = y;
  }
  int64 sum() { return this.x + this.y; }
  void shift(int32 dx) { this.x += dx; }
}
var p = new Point(3, 4);
print(p.x, p.y, p.sum());
p.shift(10);
print(p.x);`)
	if out != "3 4 7\n13\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFieldInitializersAreCopiedPerInstance(t *testing.T) {
	out := runOK(t, `
class Bag {
  int32[] items = [1];
}
var a = new Bag();
var b = new Bag();
append(a.items, 2);
print(len(a.items), len(b.items));`)
	if out != "2 1\n" {
		t.Errorf("list initializers must not be shared across instances: %q", out)
	}
}

func TestStaticMembers(t *testing.T) {
	out := runOK(t, `
class Counter {
  static int64 total = 0;
  Counter() { Counter.total += 1; }
  static int64 peek() { return total; }
}
new Counter();
new Counter();
print(Counter.total);
print(Counter.peek());`)
	if out != "2\n2\n" {
		t.Errorf("output = %q", out)
	}
}

func TestInstanceSeesStaticsThroughSelf(t *testing.T) {
	out := runOK(t, `
class Config {
  static string mode = "dev";
}
var c = new Config();
print(c.mode);`)
	if out != "dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMemberAssignmentDefinesNewField(t *testing.T) {
	out := runOK(t, `
class Box { }
var b = new Box();
b.label = "fragile";
print(b.label);`)
	if out != "fragile\n" {
		t.Errorf("output = %q", out)
	}
}

func TestDestructorRunsOnDestroy(t *testing.T) {
	out := runOK(t, `
class File {
  string name = "";
  File(string name) { this.name = name; }
  ~File() { print("closing " + this.name); }
}
var f = new File("a.txt");
destroy(f);`)
	if out != "closing a.txt\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPrivateFieldsAreReadableFromOutside(t *testing.T) {
	// access modifiers are declaration metadata, not an enforcement boundary
	out := runOK(t, `
class Account {
  private int64 balance = 40;
  int64 get() { return this.balance; }
}
var a = new Account();
print(a.balance, a.get());`)
	if out != "40 40\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFieldShadowsMethod(t *testing.T) {
	out := runOK(t, `
class Odd {
  string kind = "field";
  string kindOf() { return "method"; }
}
var o = new Odd();
print(o.kind, o.kindOf());`)
	if out != "field method\n" {
		t.Errorf("output = %q", out)
	}
}

func TestBoundMethodTravelsAsValue(t *testing.T) {
	out := runOK(t, `
class Greeter {
  string who = "world";
  string hello() { return "hi " + this.who; }
}
var g = new Greeter();
var f = g.hello;
g.who = "sable";
print(f());`)
	if out != "hi sable\n" {
		t.Errorf("bound method must keep its receiver: %q", out)
	}
}

func TestMissingConstructorRejectsArguments(t *testing.T) {
	expectErrKind(t, `
class Empty { }
new Empty(1);`, ErrArityMismatch)
}

func TestConstructorArityIsExact(t *testing.T) {
	expectErrKind(t, `
class Pair {
  Pair(int32 a, int32 b) { }
}
new Pair(1);`, ErrArityMismatch)
}

func TestDuplicateFieldIsError(t *testing.T) {
	expectErrKind(t, `
class Dup {
  int32 x = 1;
  int32 x = 2;
}`, ErrRedeclaration)
}

func TestFieldInitializerIsWidthChecked(t *testing.T) {
	expectErrKind(t, `
class Tiny {
  int8 v = 1000;
}`, ErrCastOverflow)
}

func TestEnumAutoIncrementAndProperties(t *testing.T) {
	out := runOK(t, `
enum Color { Red, Green = 5, Blue }
print(Color.Red.value, Color.Green.value, Color.Blue.value);
print(Color.Blue.name);
print(Color.Red);`)
	if out != "0 5 6\nBlue\nColor.Red\n" {
		t.Errorf("output = %q", out)
	}
}

func TestEnumComparison(t *testing.T) {
	out := runOK(t, `
enum Level { Low, Mid, High }
print(Level.Low == Level.Low);
print(Level.Low == Level.High);
print(Level.Low < Level.High);`)
	if out != "true\nfalse\ntrue\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForeachOverEnumFollowsDeclarationOrder(t *testing.T) {
	out := runOK(t, `
enum Dir { North, East, South, West }
foreach (d in Dir) { print(d.name); }`)
	if out != "North\nEast\nSouth\nWest\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNamespaces(t *testing.T) {
	out := runOK(t, `
namespace geo {
  class Point {
    int32 x = 7;
  }
  int32 answer() { return 42; }
}
var p = new geo.Point();
print(p.x, geo.answer());`)
	if out != "7 42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNamespaceReopeningMerges(t *testing.T) {
	out := runOK(t, `
namespace util {
  int32 one() { return 1; }
}
namespace util {
  int32 two() { return 2; }
}
print(util.one() + util.two());`)
	if out != "3\n" {
		t.Errorf("reopening a namespace must merge members: %q", out)
	}
}

func TestNestedNamespaces(t *testing.T) {
	out := runOK(t, `
namespace app {
  namespace db {
    string name() { return "main"; }
  }
}
print(app.db.name());`)
	if out != "main\n" {
		t.Errorf("output = %q", out)
	}
}
