package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/internal/models"
)

const resultsCSV = `"Week ID","Winner 1","Winner 2","Winner 3","Task"
"W1","Alex","Sarah","Mike","Run  a hill"
"2","Emma","James","Alex","Run with a friend"
"W3","Sarah","Emma","Mike","Run a hill"
`

// fakeGoogle serves gviz exports from tabs and answers the script endpoint with script.
func fakeGoogle(t *testing.T, tabs map[string]string, script http.HandlerFunc) (*httptest.Server, *HTTPClient) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/spreadsheets/d/sheet-id/gviz/tq", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tqx") != "out:csv" {
			t.Errorf("expected tqx=out:csv, got %q", r.URL.Query().Get("tqx"))
		}
		body, ok := tabs[r.URL.Query().Get("sheet")]
		if !ok {
			w.Write([]byte("<!DOCTYPE html><html><body>sign in</body></html>"))
			return
		}
		w.Write([]byte(body))
	})
	if script != nil {
		mux.HandleFunc("/exec", script)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	opts := Options{
		SpreadsheetID: "sheet-id",
		ResultsTab:    "Lucky Results",
		DefaultTask:   "Run 5 km with a friend",
		DocsURL:       server.URL,
	}
	if script != nil {
		opts.ScriptURL = server.URL + "/exec"
	}
	return server, NewHTTPClient(opts, logger.Discard())
}

func TestParseCSV(t *testing.T) {
	raw := []byte("\ufeffName , Mon,Note\n\"Ann\",5,\"ran, then walked\"\n,,\nBo,3\n")
	rows, err := ParseCSV(raw)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := rows[0].Headers; len(got) != 3 || got[0] != "Name" || got[1] != "Mon" {
		t.Errorf("unexpected headers %q", got)
	}
	if rows[0].Get("Note") != "ran, then walked" {
		t.Errorf("quoted comma lost: %q", rows[0].Get("Note"))
	}
	if rows[1].Get("Name") != "Bo" || rows[1].Get("Note") != "" {
		t.Errorf("short row not padded: %+v", rows[1].Cells)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	rows, err := ParseCSV(nil)
	if err != nil || rows != nil {
		t.Errorf("expected nil, nil; got %v, %v", rows, err)
	}
}

func TestHTTPClient_FetchTab(t *testing.T) {
	_, client := fakeGoogle(t, map[string]string{
		"W1":            "Name,Mon\nAnn,5\n",
		"Media Storage": "Name,URL\nAnn,https://x/a.jpg\n",
	}, nil)

	tab, err := client.FetchTab(context.Background(), "W1")
	if err != nil {
		t.Fatalf("FetchTab failed: %v", err)
	}
	if tab == nil || len(tab.Rows) != 1 || tab.Rows[0].Get("Mon") != "5" {
		t.Fatalf("unexpected tab %+v", tab)
	}
	if string(tab.Raw) != "Name,Mon\nAnn,5\n" {
		t.Errorf("raw export not kept: %q", tab.Raw)
	}

	media, err := client.FetchTab(context.Background(), "Media Storage")
	if err != nil || media == nil {
		t.Fatalf("tab names with spaces must be escaped: %v %v", media, err)
	}

	missing, err := client.FetchTab(context.Background(), "W9")
	if err != nil {
		t.Fatalf("absent tab should not error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil tab for an HTML body, got %+v", missing)
	}
}

func TestAbsentBody(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"", true},
		{"   \n", true},
		{"<!DOCTYPE html><html>", true},
		{"<html><head>", true},
		{`/*O_o*/ google.visualization.Query.setResponse({"status":"error"})`, true},
		{`<div class="gviz-response-status-error">`, true},
		{"Name,Mon\nAnn,5", false},
	}
	for _, tt := range tests {
		if got := absentBody([]byte(tt.body)); got != tt.want {
			t.Errorf("absentBody(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestHTTPClient_FetchTab_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(Options{SpreadsheetID: "x", DocsURL: server.URL}, logger.Discard())
	if _, err := client.FetchTab(context.Background(), "W1"); err == nil {
		t.Fatal("expected error for server error response")
	}
}

func TestHTTPClient_FetchDrawResult_Script(t *testing.T) {
	_, client := fakeGoogle(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("weekId") != "W4" {
			json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"weekId": "W4", "winners": []string{"A", "B", "C"}, "task": "Run a hill"},
		})
	})

	res, err := client.FetchDrawResult(context.Background(), "W4")
	if err != nil {
		t.Fatalf("FetchDrawResult failed: %v", err)
	}
	if res == nil || res.Task != "Run a hill" || len(res.Winners) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}

	none, err := client.FetchDrawResult(context.Background(), "W5")
	if err != nil || none != nil {
		t.Errorf("expected no result, got %+v, %v", none, err)
	}
}

func TestHTTPClient_FetchDrawResult_FallsBackToResultsTab(t *testing.T) {
	_, client := fakeGoogle(t, map[string]string{"Lucky Results": resultsCSV}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res, err := client.FetchDrawResult(context.Background(), "W2")
	if err != nil {
		t.Fatalf("FetchDrawResult failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected the results tab row for week 2")
	}
	if res.WeekID != "W2" || res.Winners[0] != "Emma" || res.Winners[2] != "Alex" || res.Task != "Run with a friend" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHTTPClient_FetchUsedTasks(t *testing.T) {
	_, client := fakeGoogle(t, map[string]string{"Lucky Results": resultsCSV}, nil)

	used, err := client.FetchUsedTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchUsedTasks failed: %v", err)
	}
	want := []string{"Run a hill", "Run with a friend"}
	if strings.Join(used, "|") != strings.Join(want, "|") {
		t.Errorf("used = %q, want %q", used, want)
	}
}

func TestHTTPClient_FetchUsedTasks_NoResultsTab(t *testing.T) {
	_, client := fakeGoogle(t, nil, nil)
	used, err := client.FetchUsedTasks(context.Background())
	if err != nil || len(used) != 0 {
		t.Errorf("expected empty list, got %q, %v", used, err)
	}
}

func TestHTTPClient_SaveDrawResult(t *testing.T) {
	var got map[string]any
	_, client := fakeGoogle(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
			t.Errorf("expected text/plain, got %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"success":true}`))
	})

	err := client.SaveDrawResult(context.Background(), models.DrawResult{
		WeekID: "W3", Winners: []string{"A", "B", "C"}, Task: "Run a hill",
	})
	if err != nil {
		t.Fatalf("SaveDrawResult failed: %v", err)
	}
	if got["action"] != "saveDrawResult" || got["weekId"] != "W3" || got["task"] != "Run a hill" {
		t.Errorf("unexpected payload %v", got)
	}
	if winners, _ := got["winners"].([]any); len(winners) != 3 {
		t.Errorf("expected 3 winners in payload, got %v", got["winners"])
	}
}

func TestHTTPClient_SaveDrawResult_Rejected(t *testing.T) {
	_, client := fakeGoogle(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"sheet locked"}`))
	})

	err := client.SaveDrawResult(context.Background(), models.DrawResult{
		WeekID: "W3", Winners: []string{"A", "B", "C"}, Task: "t",
	})
	if err == nil || !strings.Contains(err.Error(), "sheet locked") {
		t.Errorf("expected script error, got %v", err)
	}
}

func TestHTTPClient_SaveDrawResult_Invalid(t *testing.T) {
	_, client := fakeGoogle(t, nil, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid results must not reach the endpoint")
	})

	invalid := []models.DrawResult{
		{WeekID: "", Winners: []string{"A", "B", "C"}, Task: "t"},
		{WeekID: "W1", Winners: []string{"A", "B"}, Task: "t"},
		{WeekID: "W1", Winners: []string{"A", "B", "C"}},
	}
	for _, res := range invalid {
		if err := client.SaveDrawResult(context.Background(), res); err == nil {
			t.Errorf("expected error for %+v", res)
		}
	}
}

func TestHTTPClient_WritesNeedScript(t *testing.T) {
	_, client := fakeGoogle(t, nil, nil)
	err := client.SavePairing(context.Background(), models.Pairing{WeekID: "W2", Runner: "A", Partner: "B"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	p, err := client.FetchPairing(context.Background(), "W2")
	if p != nil || err != nil {
		t.Errorf("expected no pairing without a script, got %+v, %v", p, err)
	}
}

func TestHTTPClient_Pairing(t *testing.T) {
	var posted map[string]any
	_, client := fakeGoogle(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &posted)
			w.Write([]byte(`{"success":true}`))
			return
		}
		if r.URL.Query().Get("action") != "getPairing" {
			t.Errorf("expected action=getPairing, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"data":{"runner":"Cy","partner":"Dee"}}`))
	})

	if err := client.SavePairing(context.Background(), models.Pairing{WeekID: "W2", Runner: "Cy", Partner: "Dee"}); err != nil {
		t.Fatalf("SavePairing failed: %v", err)
	}
	if posted["action"] != "savePairing" || posted["runner"] != "Cy" || posted["partner"] != "Dee" {
		t.Errorf("unexpected payload %v", posted)
	}

	p, err := client.FetchPairing(context.Background(), "W2")
	if err != nil {
		t.Fatalf("FetchPairing failed: %v", err)
	}
	if p == nil || p.WeekID != "W2" || p.Runner != "Cy" || p.Partner != "Dee" {
		t.Errorf("unexpected pairing %+v", p)
	}
}

func TestHTTPClient_FetchChallengePool(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.txt")
	os.WriteFile(path, []byte("# weekly tasks\nRun a hill\n\n  Run with a friend  \n"), 0o644)

	client := NewHTTPClient(Options{PoolPath: path, DefaultTask: "fallback"}, logger.Discard())
	pool, err := client.FetchChallengePool(context.Background())
	if err != nil {
		t.Fatalf("FetchChallengePool failed: %v", err)
	}
	if len(pool) != 2 || pool[0] != "Run a hill" || pool[1] != "Run with a friend" {
		t.Errorf("unexpected pool %q", pool)
	}

	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("# nothing yet\n"), 0o644)
	client = NewHTTPClient(Options{PoolPath: empty, DefaultTask: "fallback"}, logger.Discard())
	pool, err = client.FetchChallengePool(context.Background())
	if err != nil || len(pool) != 1 || pool[0] != "fallback" {
		t.Errorf("expected default task, got %q, %v", pool, err)
	}

	client = NewHTTPClient(Options{PoolPath: filepath.Join(dir, "missing.txt")}, logger.Discard())
	if _, err := client.FetchChallengePool(context.Background()); err == nil {
		t.Error("expected error for missing pool file")
	}
}

func TestHTTPClient_FetchChallengePool_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Run a hill\n#skip\nSunrise run\n"))
	}))
	defer server.Close()

	client := NewHTTPClient(Options{PoolURL: server.URL}, logger.Discard())
	pool, err := client.FetchChallengePool(context.Background())
	if err != nil || len(pool) != 2 {
		t.Errorf("unexpected pool %q, %v", pool, err)
	}
}

func TestDrawResultFromRows(t *testing.T) {
	rows, err := ParseCSV([]byte(resultsCSV))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		week     string
		wantTask string
	}{
		{"W1", "Run  a hill"},
		{"w2", "Run with a friend"},
		{"3", "Run a hill"},
		{"W4", ""},
	}
	for _, tt := range tests {
		res := DrawResultFromRows(rows, tt.week)
		if tt.wantTask == "" {
			if res != nil {
				t.Errorf("%s: expected nil, got %+v", tt.week, res)
			}
			continue
		}
		if res == nil || res.Task != tt.wantTask || res.WeekID != tt.week {
			t.Errorf("%s: unexpected result %+v", tt.week, res)
		}
	}
}

func TestDrawResultFromRows_PositionalTask(t *testing.T) {
	rows, _ := ParseCSV([]byte("Week,A,B,C,Thing\n5,x,y,z,Sunrise run\n"))
	res := DrawResultFromRows(rows, "W5")
	if res == nil || res.Task != "Sunrise run" || res.Winners[1] != "y" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDrawResultFromRows_RequiresThreeWinners(t *testing.T) {
	rows, _ := ParseCSV([]byte("Week,A,B,C,Task\nW6,,,,Sunrise run\nW7,x,,z,Run a hill\nW8,x,y,z,Run a hill\n"))

	for _, week := range []string{"W6", "W7"} {
		if res := DrawResultFromRows(rows, week); res != nil {
			t.Errorf("%s: expected nil for missing winners, got %+v", week, res)
		}
	}
	if res := DrawResultFromRows(rows, "W8"); res == nil || len(res.Winners) != 3 {
		t.Errorf("W8: unexpected result %+v", res)
	}
}

// ==================== Workbook Tests ====================

func newWorkbook(t *testing.T, sheets ...Sheet) *WorkbookClient {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenge.xlsx")
	if err := WriteWorkbook(path, sheets); err != nil {
		t.Fatalf("WriteWorkbook failed: %v", err)
	}
	return NewWorkbookClient(path, Options{ResultsTab: "Lucky Results", DefaultTask: "fallback"}, logger.Discard())
}

func TestWorkbookClient_FetchTab(t *testing.T) {
	wb := newWorkbook(t,
		Sheet{Name: "W1", Rows: [][]string{{"Name", "Mon", "Tue"}, {"Ann", "5", "6"}, {"Bo", "3"}}},
		Sheet{Name: "W2", Rows: [][]string{{"Name", "Mon", "Tue"}, {"Ann", "5", "6"}, {"Bo", "3"}}},
	)

	w1, err := wb.FetchTab(context.Background(), "W1")
	if err != nil {
		t.Fatalf("FetchTab failed: %v", err)
	}
	if w1 == nil || len(w1.Rows) != 2 || w1.Rows[1].Get("Mon") != "3" || w1.Rows[1].Get("Tue") != "" {
		t.Fatalf("unexpected tab %+v", w1)
	}
	w2, _ := wb.FetchTab(context.Background(), "W2")
	if string(w1.Raw) != string(w2.Raw) {
		t.Error("identical sheets should render identical raw exports")
	}

	missing, err := wb.FetchTab(context.Background(), "W3")
	if err != nil || missing != nil {
		t.Errorf("expected absent tab, got %+v, %v", missing, err)
	}
	if _, err := wb.FetchTab(context.Background(), "Sheet1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorkbookClient_MissingFile(t *testing.T) {
	wb := NewWorkbookClient(filepath.Join(t.TempDir(), "nope.xlsx"), Options{}, logger.Discard())
	if _, err := wb.FetchTab(context.Background(), "W1"); err == nil {
		t.Error("expected error for missing workbook")
	}
}

func TestWorkbookClient_DrawResults(t *testing.T) {
	wb := newWorkbook(t, Sheet{Name: "W1", Rows: [][]string{{"Name"}, {"Ann"}}})
	ctx := context.Background()

	res := models.DrawResult{WeekID: "W1", Winners: []string{"Ann", "Bo", "Cy"}, Task: "Run a hill", DrawnAt: time.Now()}
	if err := wb.SaveDrawResult(ctx, res); err != nil {
		t.Fatalf("SaveDrawResult failed: %v", err)
	}
	again := models.DrawResult{WeekID: "W1", Winners: []string{"X", "Y", "Z"}, Task: "other"}
	if err := wb.SaveDrawResult(ctx, again); err != nil {
		t.Fatalf("second SaveDrawResult failed: %v", err)
	}

	got, err := wb.FetchDrawResult(ctx, "W1")
	if err != nil {
		t.Fatalf("FetchDrawResult failed: %v", err)
	}
	if got == nil || got.Winners[0] != "Ann" || got.Task != "Run a hill" {
		t.Errorf("first result must win, got %+v", got)
	}

	used, err := wb.FetchUsedTasks(ctx)
	if err != nil || len(used) != 1 || used[0] != "Run a hill" {
		t.Errorf("unexpected used tasks %q, %v", used, err)
	}
}

func TestWorkbookClient_Pairings(t *testing.T) {
	wb := newWorkbook(t, Sheet{Name: "W1", Rows: [][]string{{"Name"}, {"Ann"}}})
	ctx := context.Background()

	if p, err := wb.FetchPairing(ctx, "W2"); p != nil || err != nil {
		t.Fatalf("expected no pairing, got %+v, %v", p, err)
	}
	created := time.Date(2025, 12, 30, 12, 0, 0, 0, time.UTC)
	if err := wb.SavePairing(ctx, models.Pairing{WeekID: "W2", Runner: "Cy", Partner: "Dee", CreatedAt: created}); err != nil {
		t.Fatalf("SavePairing failed: %v", err)
	}
	p, err := wb.FetchPairing(ctx, "W2")
	if err != nil {
		t.Fatalf("FetchPairing failed: %v", err)
	}
	if p == nil || p.Runner != "Cy" || p.Partner != "Dee" || !p.CreatedAt.Equal(created) {
		t.Errorf("unexpected pairing %+v", p)
	}
}

func TestWorkbookClient_ChallengePool(t *testing.T) {
	wb := newWorkbook(t,
		Sheet{Name: "W1", Rows: [][]string{{"Name"}, {"Ann"}}},
		Sheet{Name: PoolTab, Rows: [][]string{{"# tasks"}, {"Run a hill"}, {"Sunrise run"}}},
	)
	pool, err := wb.FetchChallengePool(context.Background())
	if err != nil {
		t.Fatalf("FetchChallengePool failed: %v", err)
	}
	if len(pool) != 2 || pool[0] != "Run a hill" {
		t.Errorf("unexpected pool %q", pool)
	}

	bare := newWorkbook(t, Sheet{Name: "W1", Rows: [][]string{{"Name"}}})
	pool, err = bare.FetchChallengePool(context.Background())
	if err != nil || len(pool) != 1 || pool[0] != "fallback" {
		t.Errorf("expected default task, got %q, %v", pool, err)
	}
}

func TestWriteWorkbook_NoSheets(t *testing.T) {
	if err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil); err == nil {
		t.Error("expected error for empty workbook")
	}
}

// ==================== Mock Tests ====================

func TestMockClient_SaveFailures(t *testing.T) {
	m := NewMockClient(WithSaveFailures(2))
	ctx := context.Background()
	p := models.Pairing{WeekID: "W2", Runner: "A", Partner: "B"}

	for i := 0; i < 2; i++ {
		if err := m.SavePairing(ctx, p); err == nil {
			t.Fatalf("attempt %d should fail", i+1)
		}
	}
	if err := m.SavePairing(ctx, p); err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if m.SaveAttempts() != 3 || len(m.SavedPairings()) != 1 {
		t.Errorf("attempts=%d saved=%d", m.SaveAttempts(), len(m.SavedPairings()))
	}
	got, _ := m.FetchPairing(ctx, "W2")
	if got == nil || got.Partner != "B" {
		t.Errorf("unexpected pairing %+v", got)
	}
}

func TestMockClient_DefaultTabs(t *testing.T) {
	m := NewMockClient()
	tab, err := m.FetchTab(context.Background(), "W1")
	if err != nil || tab == nil || len(tab.Rows) != 4 {
		t.Fatalf("unexpected W1 %+v, %v", tab, err)
	}
	if absent, _ := m.FetchTab(context.Background(), "W3"); absent != nil {
		t.Error("W3 should be absent")
	}
}
