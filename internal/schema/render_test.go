package schema

import (
	"path/filepath"
	"testing"
)

func TestRender(t *testing.T) {
	tables := []Table{
		{Name: "orders", Columns: []Column{{"id", "integer"}, {"total", "numeric"}}},
		{Name: "customers", Columns: []Column{{"id", "integer"}, {"name", "text"}}},
	}

	want := "CREATE TABLE orders (\n" +
		"    id integer,\n" +
		"    total numeric\n" +
		");\n" +
		"\n" +
		"CREATE TABLE customers (\n" +
		"    id integer,\n" +
		"    name text\n" +
		");\n"

	if got := Render(tables); got != want {
		t.Errorf("Render() =\n%q\nwant\n%q", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("Render(nil) = %q, want empty", got)
	}
}

func TestFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_schema.sql")

	exists, err := Exists(path)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Fatal("Exists() = true before Save")
	}

	if err := Save(path, "CREATE TABLE t (\n    id integer\n);\n"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	exists, err = Exists(path)
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v after Save", exists, err)
	}

	text, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if text != "CREATE TABLE t (\n    id integer\n);\n" {
		t.Errorf("Load() = %q", text)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.sql")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}
