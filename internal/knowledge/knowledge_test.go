package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const balanceDoc = `# Balance Point Basics

The balance point is the outdoor temperature where heat pump capacity
equals the building heat loss. Below it, auxiliary heat makes up the
deficit.

## Lockout settings

Set the compressor lockout a few degrees below the balance point.
`

const defrostDoc = `# Defrost Cycles

Frost forms on the outdoor coil between 25°F and 45°F when humidity is
high. The reversing valve runs the system briefly in cooling to clear it.
`

func TestLoadAndRetrieve(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"balance.md": balanceDoc,
		"defrost.md": defrostDoc,
		"notes.txt":  "not markdown, should be skipped",
	})

	lib, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Len() != 2 {
		t.Fatalf("loaded %d docs, want 2", lib.Len())
	}

	got := lib.Retrieve("where should I set my balance point lockout", BudgetStandard)
	if !strings.Contains(got, "[Balance Point Basics]") {
		t.Errorf("retrieval missed the relevant doc:\n%s", got)
	}
	if strings.Contains(got, "#") {
		t.Errorf("markdown syntax leaked into plain text:\n%s", got)
	}

	got = lib.Retrieve("why does frost form during defrost", BudgetStandard)
	if !strings.HasPrefix(got, "[Defrost Cycles]") {
		t.Errorf("defrost doc should rank first:\n%s", got)
	}
}

func TestRetrieveNoMatch(t *testing.T) {
	dir := writeDocs(t, map[string]string{"balance.md": balanceDoc})
	lib, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := lib.Retrieve("zebra migration patterns", BudgetStandard); got != "" {
		t.Errorf("expected empty retrieval, got %q", got)
	}
	if got := lib.Retrieve("", BudgetStandard); got != "" {
		t.Errorf("empty query should retrieve nothing, got %q", got)
	}
}

func TestRetrieveBudget(t *testing.T) {
	dir := writeDocs(t, map[string]string{
		"balance.md": balanceDoc,
		"defrost.md": defrostDoc,
	})
	lib, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	budget := 120
	got := lib.Retrieve("balance point defrost lockout frost", budget)
	// Allow for the title header and the truncation marker.
	if len(got) > budget+60 {
		t.Errorf("excerpt length %d exceeds budget %d:\n%s", len(got), budget, got)
	}
}

func TestLoadMissingDir(t *testing.T) {
	lib, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Len() != 0 {
		t.Errorf("Len = %d", lib.Len())
	}
	if got := lib.Retrieve("anything", BudgetStandard); got != "" {
		t.Errorf("empty library retrieved %q", got)
	}
}
