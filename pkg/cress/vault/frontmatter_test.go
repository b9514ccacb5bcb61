package vault

import (
	"testing"

	"github.com/sambeau/cress/pkg/cress/evaluator"
)

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		wantFront string
		wantBody  string
	}{
		{
			"front matter and body",
			"---\ntitle: x\n---\nbody text\n",
			"title: x",
			"body text\n",
		},
		{
			"no front matter",
			"just a note\n",
			"",
			"just a note\n",
		},
		{
			"front matter only",
			"---\ntitle: x\n---",
			"title: x",
			"",
		},
		{
			"unclosed fence is body",
			"---\ntitle: x\n",
			"",
			"---\ntitle: x\n",
		},
		{
			"horizontal rule later is body",
			"text\n---\nmore\n",
			"",
			"text\n---\nmore\n",
		},
	}
	for _, tt := range tests {
		front, body := splitFrontMatter([]byte(tt.source))
		if string(front) != tt.wantFront {
			t.Errorf("%s: front = %q, want %q", tt.name, front, tt.wantFront)
		}
		if string(body) != tt.wantBody {
			t.Errorf("%s: body = %q, want %q", tt.name, body, tt.wantBody)
		}
	}
}

func TestParseFrontMatterTypes(t *testing.T) {
	front := []byte(`
title: Plan
done: true
priority: 3
weight: 2.5
due: 2024-06-15
parent: "[[Projects/Home|the project]]"
nothing: null
tags:
  - project
  - urgent
extra:
  depth: 2
`)
	rec, err := parseFrontMatter(front)
	if err != nil {
		t.Fatalf("parseFrontMatter failed: %s", err)
	}

	expectKeys := []string{"title", "done", "priority", "weight", "due", "parent", "nothing", "tags", "extra"}
	if len(rec.Keys) != len(expectKeys) {
		t.Fatalf("expected %d keys, got %d (%v)", len(expectKeys), len(rec.Keys), rec.Keys)
	}
	for i, k := range expectKeys {
		if rec.Keys[i] != k {
			t.Errorf("key %d: expected %q, got %q (order must follow the source)", i, k, rec.Keys[i])
		}
	}

	if v, _ := rec.Get("title"); v.(*evaluator.String).Value != "Plan" {
		t.Errorf("title: %s", v.Inspect())
	}
	if v, _ := rec.Get("done"); v != evaluator.TRUE {
		t.Errorf("done should be boolean true, got %s", v.Inspect())
	}
	if v, _ := rec.Get("priority"); v.(*evaluator.Number).Value != 3 {
		t.Errorf("priority: %s", v.Inspect())
	}
	if v, _ := rec.Get("weight"); v.(*evaluator.Number).Value != 2.5 {
		t.Errorf("weight: %s", v.Inspect())
	}
	if v, _ := rec.Get("nothing"); v != evaluator.NULL {
		t.Errorf("nothing should be null, got %s", v.Inspect())
	}

	due, _ := rec.Get("due")
	dt, ok := due.(*evaluator.Datetime)
	if !ok {
		t.Fatalf("due should be a timestamp, got %s", due.Type())
	}
	if dt.Time.Year() != 2024 || dt.Time.Month() != 6 || dt.Time.Day() != 15 {
		t.Errorf("due parsed wrong: %s", dt.Inspect())
	}

	parent, _ := rec.Get("parent")
	link, ok := parent.(*evaluator.Link)
	if !ok {
		t.Fatalf("parent should be a link, got %s", parent.Type())
	}
	if link.Target != "Projects/Home" || link.Display != "the project" {
		t.Errorf("link parsed wrong: %s / %s", link.Target, link.Display)
	}

	tags, _ := rec.Get("tags")
	list, ok := tags.(*evaluator.List)
	if !ok || len(list.Elements) != 2 {
		t.Fatalf("tags should be a 2-element list, got %s", tags.Inspect())
	}

	extra, _ := rec.Get("extra")
	nested, ok := extra.(*evaluator.Record)
	if !ok {
		t.Fatalf("extra should be a record, got %s", extra.Type())
	}
	if v, _ := nested.Get("depth"); v.(*evaluator.Number).Value != 2 {
		t.Errorf("nested depth: %s", v.Inspect())
	}
}

func TestParseFrontMatterKeepsPlainStrings(t *testing.T) {
	rec, err := parseFrontMatter([]byte("note: a plain 2024 sentence\nversion: v1.2.3\n"))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"note", "version"} {
		v, _ := rec.Get(key)
		if _, ok := v.(*evaluator.String); !ok {
			t.Errorf("%s should stay a string, got %s", key, v.Type())
		}
	}
}

func TestParseFrontMatterBrokenYAML(t *testing.T) {
	rec, err := parseFrontMatter([]byte("title: [unclosed"))
	if err == nil {
		t.Error("expected an error for broken YAML")
	}
	if rec == nil || len(rec.Keys) != 0 {
		t.Error("broken front matter should still give an empty record")
	}
}
