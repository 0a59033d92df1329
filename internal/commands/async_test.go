package commands

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yasskadd/scrabble/internal/gateway"
)

// settled is one decoded SettleFunction call.
type settled struct {
	id     string
	result json.RawMessage
}

func parseSettle(t *testing.T, js string) settled {
	t.Helper()
	const marker = ".apply(null, "
	i := strings.Index(js, marker)
	if i < 0 || !strings.HasSuffix(js, ");") {
		t.Fatalf("unexpected settle script %q", js)
	}
	var args []json.RawMessage
	if err := json.Unmarshal([]byte(js[i+len(marker):len(js)-2]), &args); err != nil || len(args) != 2 {
		t.Fatalf("bad settle arguments in %q: %v", js, err)
	}
	var s settled
	if err := json.Unmarshal(args[0], &s.id); err != nil {
		t.Fatal(err)
	}
	s.result = args[1]
	return s
}

func bindAsync(t *testing.T, f *fixture) (*fakeBinder, <-chan string) {
	t.Helper()
	scripts := make(chan string, 16)
	b := &fakeBinder{fns: map[string]interface{}{}}
	if err := f.cmds.Bind(b, func(js string) { scripts <- js }); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	return b, scripts
}

func nextSettle(t *testing.T, scripts <-chan string) settled {
	t.Helper()
	select {
	case js := <-scripts:
		return parseSettle(t, js)
	case <-time.After(5 * time.Second):
		t.Fatal("no result settled")
		return settled{}
	}
}

func TestBind_RegistersEveryCommand(t *testing.T) {
	f := newFixture(t, nil)
	b, _ := bindAsync(t, f)

	var names []string
	for name := range b.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	want := []string{
		AsyncPrefix + "disconnect", AsyncPrefix + "establishConnection",
		AsyncPrefix + "httpDelete", AsyncPrefix + "httpGet", AsyncPrefix + "httpPatch",
		AsyncPrefix + "httpPost", AsyncPrefix + "httpPut",
		AsyncPrefix + "queryAlive", AsyncPrefix + "send",
		"clearSessionCookie", "saveSessionCookie",
	}
	sort.Strings(want)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("bound %v, want %v", names, want)
	}

	script := AsyncScript()
	for _, name := range asyncNames {
		if !strings.Contains(script, `"`+name+`"`) {
			t.Errorf("page script does not wrap %s", name)
		}
	}
	if !strings.Contains(script, SettleFunction+" = function") {
		t.Error("page script does not define the settle function")
	}
}

func TestBind_SocketCommandsKeepCallOrder(t *testing.T) {
	f := newFixture(t, nil)
	b, scripts := bindAsync(t, f)

	b.fns[AsyncPrefix+"establishConnection"].(func(string, string, string))("1", "", "")
	b.fns[AsyncPrefix+"send"].(func(string, string, string))("2", "move", "h8")
	b.fns[AsyncPrefix+"queryAlive"].(func(string))("3")
	b.fns[AsyncPrefix+"disconnect"].(func(string))("4")
	b.fns[AsyncPrefix+"queryAlive"].(func(string))("5")

	want := []struct{ id, result string }{
		{"1", "null"},
		{"2", "null"},
		{"3", `"socketAlive"`},
		{"4", "null"},
		{"5", `"socketNotAlive"`},
	}
	for _, w := range want {
		s := nextSettle(t, scripts)
		if s.id != w.id || string(s.result) != w.result {
			t.Errorf("settled (%s, %s), want (%s, %s)", s.id, s.result, w.id, w.result)
		}
	}
	if got := f.notifier.all(); len(got) != 0 {
		t.Errorf("unexpected notifications %v", got)
	}
}

func TestBind_HTTPCallsRunConcurrently(t *testing.T) {
	// The server answers only once both requests are in flight, so the
	// calls cannot complete if they run one after the other.
	var arrived sync.WaitGroup
	arrived.Add(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		arrived.Wait()
		body, _ := io.ReadAll(r.Body)
		io.WriteString(w, r.Method+" "+r.URL.Path+" "+string(body))
	}))
	defer srv.Close()

	f := newFixture(t, func(o *Options) {
		g, err := gateway.New(srv.Client(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		o.Gateway = g
	})
	b, scripts := bindAsync(t, f)

	returned := make(chan struct{})
	go func() {
		b.fns[AsyncPrefix+"httpGet"].(func(string, string, string, string, string))("a", "/api/profile", "", "", "")
		b.fns[AsyncPrefix+"httpPost"].(func(string, string, string, string, string))("b", "/api/games", `{"mode":"classic"}`, "", "")
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("HTTP bindings blocked the caller")
	}

	got := map[string]gateway.Result{}
	for i := 0; i < 2; i++ {
		s := nextSettle(t, scripts)
		var res gateway.Result
		if err := json.Unmarshal(s.result, &res); err != nil {
			t.Fatalf("result %s is not a gateway result: %v", s.result, err)
		}
		got[s.id] = res
	}
	if got["a"].Body != "GET /api/profile " || got["a"].Err != "" {
		t.Errorf("httpGet settled %+v", got["a"])
	}
	if got["b"].Body != `POST /api/games {"mode":"classic"}` || got["b"].Err != "" {
		t.Errorf("httpPost settled %+v", got["b"])
	}
}

func TestSettleScript(t *testing.T) {
	js, err := SettleScript("7", gateway.Result{Body: "</script>"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(js, "if (typeof "+SettleFunction+" === 'function')") {
		t.Errorf("script is not guarded: %q", js)
	}
	if strings.Contains(js, "</script>") {
		t.Errorf("script carries raw markup: %q", js)
	}
}
