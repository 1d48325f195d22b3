package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMermaid(t *testing.T) {
	tables := map[string][]column{
		"self_assessment_submissions": {
			{Name: "assessment_id", DataType: "text", PrimaryKey: true},
			{Name: "ai_inventory_use_case_id", DataType: "text", Nullable: true, ForeignKey: true},
			{Name: "answers", DataType: "jsonb"},
			{Name: "created_at", DataType: "timestamp with time zone"},
		},
		"ai_inventory_submissions": {
			{Name: "use_case_id", DataType: "text", PrimaryKey: true},
		},
	}
	relationships := []relationship{
		{
			FromTable:  "self_assessment_submissions",
			FromColumn: "ai_inventory_use_case_id",
			ToTable:    "ai_inventory_submissions",
			ToColumn:   "use_case_id",
		},
	}

	out := renderMermaid(tables, relationships)

	assert.Contains(t, out, "erDiagram")
	assert.Contains(t, out, "text assessment_id PK")
	assert.Contains(t, out, "text ai_inventory_use_case_id FK")
	assert.Contains(t, out, "timestamptz created_at")
	assert.Contains(t, out, `self_assessment_submissions }o--|| ai_inventory_submissions : "ai_inventory_use_case_id"`)

	// Tables render in deterministic order.
	assert.Less(t, 0, len(out))
	assert.Less(t,
		indexOf(out, "ai_inventory_submissions {"),
		indexOf(out, "self_assessment_submissions {"),
	)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestMermaidType(t *testing.T) {
	assert.Equal(t, "varchar", mermaidType("character varying"))
	assert.Equal(t, "array", mermaidType("ARRAY"))
	assert.Equal(t, "jsonb", mermaidType("jsonb"))
	assert.Equal(t, "double_precision", mermaidType("double precision"))
}
