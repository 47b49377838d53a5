package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModuleTable(t *testing.T) {
	path := writeFile(t, "modules.yaml", `
modules:
  - kind: reactor
    name: Fusion Reactor
    power_output: 6
  - kind: shield
    name: Shield Generator
    power_cost: 2
    shield_bonus: 4
    hook: true
`)
	tbl, err := LoadModuleTable(path)
	if err != nil {
		t.Fatalf("LoadModuleTable: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("Count = %d", tbl.Count())
	}
	sh := tbl.Get("shield")
	if sh == nil || sh.PowerCost != 2 || sh.ShieldBonus != 4 || !sh.Hook {
		t.Errorf("shield = %+v", sh)
	}
	if tbl.Get("cloak") != nil {
		t.Error("unknown kind resolved")
	}
}

func TestLoadModuleTableRejectsBadEntries(t *testing.T) {
	for name, body := range map[string]string{
		"missing kind":  "modules:\n  - name: x\n",
		"negative cost": "modules:\n  - kind: x\n    power_cost: -1\n",
		"not yaml":      "modules: [",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadModuleTable(writeFile(t, "modules.yaml", body)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := LoadModuleTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestLoadSectorTable(t *testing.T) {
	path := writeFile(t, "sectors.yaml", `
sectors:
  - {id: 7, name: Kepler Drift}
  - {id: 2, name: Home}
`)
	tbl, err := LoadSectorTable(path)
	if err != nil {
		t.Fatalf("LoadSectorTable: %v", err)
	}
	if got := tbl.Name(7); got != "Kepler Drift" {
		t.Errorf("Name(7) = %q", got)
	}
	if got := tbl.Name(9); got != "sector 9" {
		t.Errorf("Name(9) = %q", got)
	}
	if ids := tbl.IDs(); len(ids) != 2 || ids[0] != 2 || ids[1] != 7 {
		t.Errorf("IDs = %v", ids)
	}

	dup := writeFile(t, "dup.yaml", "sectors:\n  - {id: 1, name: a}\n  - {id: 1, name: b}\n")
	if _, err := LoadSectorTable(dup); err == nil {
		t.Error("duplicate sector accepted")
	}
}
