package window

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	r := NewRegistry()

	var got []string
	main := NewFuncTarget("main", func(event, payload string) error {
		got = append(got, event+":"+payload)
		return nil
	})
	if err := r.Register(main); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	target, ok := r.Lookup("main")
	if !ok {
		t.Fatal("Lookup(main) found nothing")
	}
	if err := target.Emit("msg", "hello"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"msg:hello"}) {
		t.Errorf("delivered %v", got)
	}

	if _, ok := r.Lookup("chat"); ok {
		t.Error("Lookup(chat) found a target that was never registered")
	}
}

func TestRegistry_ReplaceAndUnregister(t *testing.T) {
	r := NewRegistry()
	errFirst := errors.New("first")

	r.Register(NewFuncTarget("chat", func(string, string) error { return errFirst }))
	r.Register(NewFuncTarget("chat", func(string, string) error { return nil }))

	target, _ := r.Lookup("chat")
	if err := target.Emit("x", ""); err != nil {
		t.Errorf("replaced target still in use: %v", err)
	}

	if !r.Unregister("chat") {
		t.Error("Unregister(chat) = false")
	}
	if r.Unregister("chat") {
		t.Error("second Unregister(chat) = true")
	}
	if names := r.Names(); len(names) != 0 {
		t.Errorf("Names() = %v after unregister", names)
	}
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	err := r.Register(NewFuncTarget("", func(string, string) error { return nil }))
	if !errors.Is(err, ErrNoName) {
		t.Errorf("Register error = %v, want ErrNoName", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"main", "chat", "console"} {
		r.Register(NewFuncTarget(n, func(string, string) error { return nil }))
	}
	want := []string{"chat", "console", "main"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(NewFuncTarget("main", func(string, string) error { return nil }))
		}()
		go func() {
			defer wg.Done()
			if target, ok := r.Lookup("main"); ok {
				target.Emit("msg", "")
			}
		}()
	}
	wg.Wait()
}

func TestScriptTarget(t *testing.T) {
	var scripts []string
	target := NewScriptTarget("main", "", func(js string) { scripts = append(scripts, js) })

	if err := target.Emit("chatMessage", `{"text":"it's </script>"}`); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(scripts) != 1 {
		t.Fatalf("scripts = %q", scripts)
	}
	want := `if (typeof window.__scrabbleEmit === 'function') window.__scrabbleEmit.apply(null, ["main","chatMessage","{\"text\":\"it's \u003c/script\u003e\"}"]);`
	if scripts[0] != want {
		t.Errorf("script =\n%s\nwant\n%s", scripts[0], want)
	}
}

func TestEmitScript_CustomFunction(t *testing.T) {
	js, err := EmitScript("app.onEvent", "chat", "SuccessfulConnection", `"SuccessfulConnection"`)
	if err != nil {
		t.Fatal(err)
	}
	want := `if (typeof app.onEvent === 'function') app.onEvent.apply(null, ["chat","SuccessfulConnection","\"SuccessfulConnection\""]);`
	if js != want {
		t.Errorf("script = %s", js)
	}
}
