package domain

import (
	"errors"
	"testing"
)

func TestIndexDefinition_NamespacedName(t *testing.T) {
	def := IndexDefinition{Name: "by_email", Kind: KindRegular}
	if got := def.NamespacedName("alpha"); got != "alpha_by_email" {
		t.Fatalf("expected alpha_by_email, got %s", got)
	}
}

func TestIsImplicitID(t *testing.T) {
	cases := []struct {
		name string
		def  IndexDefinition
		want bool
	}{
		{"id asc int", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "_id", Value: 1}}}, true},
		{"id asc int32", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "_id", Value: int32(1)}}}, true},
		{"id asc float", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "_id", Value: float64(1)}}}, true},
		{"id desc", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "_id", Value: -1}}}, false},
		{"other field", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "email", Value: 1}}}, false},
		{"compound", IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "_id", Value: 1}, {Field: "x", Value: 1}}}, false},
		{"ttl on id", IndexDefinition{Kind: KindTTL, Keys: []IndexKey{{Field: "_id", Value: 1}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.def.IsImplicitID(); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	expire := int32(60)
	cases := []struct {
		name    string
		def     IndexDefinition
		wantErr bool
	}{
		{
			"regular ok",
			IndexDefinition{Name: "i", Kind: KindRegular, Keys: []IndexKey{{Field: "a", Value: 1}}},
			false,
		},
		{
			"missing name",
			IndexDefinition{Kind: KindRegular, Keys: []IndexKey{{Field: "a", Value: 1}}},
			true,
		},
		{
			"regular without keys",
			IndexDefinition{Name: "i", Kind: KindRegular},
			true,
		},
		{
			"regular with definition",
			IndexDefinition{Name: "i", Kind: KindRegular,
				Keys:       []IndexKey{{Field: "a", Value: 1}},
				Definition: map[string]any{"fields": 1}},
			true,
		},
		{
			"search ok",
			IndexDefinition{Name: "i", Kind: KindSearch,
				Definition: map[string]any{"mappings": map[string]any{"dynamic": true}}},
			false,
		},
		{
			"search without definition",
			IndexDefinition{Name: "i", Kind: KindSearch},
			true,
		},
		{
			"vectorSearch with keys",
			IndexDefinition{Name: "i", Kind: KindVectorSearch,
				Keys:       []IndexKey{{Field: "a", Value: 1}},
				Definition: map[string]any{"fields": []any{}}},
			true,
		},
		{
			"ttl ok",
			IndexDefinition{Name: "i", Kind: KindTTL,
				Keys:    []IndexKey{{Field: "created_at", Value: 1}},
				Options: IndexOptions{ExpireAfterSeconds: &expire}},
			false,
		},
		{
			"ttl without expiry",
			IndexDefinition{Name: "i", Kind: KindTTL,
				Keys: []IndexKey{{Field: "created_at", Value: 1}}},
			true,
		},
		{
			"partial without filter",
			IndexDefinition{Name: "i", Kind: KindPartial,
				Keys: []IndexKey{{Field: "a", Value: 1}}},
			true,
		},
		{
			"unknown kind",
			IndexDefinition{Name: "i", Kind: IndexKind("bogus"), Keys: []IndexKey{{Field: "a", Value: 1}}},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && !errors.Is(err, ErrInvalidIndex) {
				t.Fatalf("expected ErrInvalidIndex, got %v", err)
			}
		})
	}
}

func TestKind_SearchType(t *testing.T) {
	if KindVectorSearch.SearchType() != "vectorSearch" {
		t.Fatal("vectorSearch kind must map to vectorSearch type")
	}
	if KindSearch.SearchType() != "search" {
		t.Fatal("search kind must map to search type")
	}
}
