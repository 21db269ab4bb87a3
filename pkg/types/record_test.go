// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arena(parents ...*int) []Section {
	secs := make([]Section, len(parents))
	for i, p := range parents {
		secs[i] = Section{Parent: p}
	}
	return secs
}

func rootedArena(parents ...*int) []Section {
	secs := arena(parents...)
	secs[0].Name = StringPtr(RootSectionName)
	return secs
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr error
	}{
		{
			name: "tree with synthetic root omitted from order",
			rec:  Record{Sections: rootedArena(nil, IntPtr(0), IntPtr(1), IntPtr(0)), SectionOrder: []int{1, 2, 3}},
		},
		{
			name:    "real section 0 omitted from order",
			rec:     Record{Sections: []Section{{Name: StringPtr("Introduction")}, {Name: StringPtr("Methods")}}, SectionOrder: []int{1}},
			wantErr: ErrBadSectionOrder,
		},
		{
			name:    "untitled section 0 omitted from order",
			rec:     Record{Sections: arena(nil, IntPtr(0)), SectionOrder: []int{1}},
			wantErr: ErrBadSectionOrder,
		},
		{
			name:    "root name on a nested section 0",
			rec:     Record{Sections: []Section{{Name: StringPtr(RootSectionName), Parent: IntPtr(1)}, {}}, SectionOrder: []int{1}},
			wantErr: ErrBadSectionOrder,
		},
		{
			name: "root listed in order",
			rec:  Record{Sections: arena(nil, nil), SectionOrder: []int{0, 1}},
		},
		{
			name: "empty record",
			rec:  Record{},
		},
		{
			name:    "parent out of range",
			rec:     Record{Sections: arena(nil, IntPtr(5)), SectionOrder: []int{1}},
			wantErr: ErrParentOutOfRange,
		},
		{
			name:    "self parent",
			rec:     Record{Sections: arena(nil, IntPtr(1)), SectionOrder: []int{1}},
			wantErr: ErrSelfParent,
		},
		{
			name:    "parent cycle",
			rec:     Record{Sections: arena(nil, IntPtr(2), IntPtr(1)), SectionOrder: []int{1, 2}},
			wantErr: ErrParentCycle,
		},
		{
			name:    "duplicate in order",
			rec:     Record{Sections: arena(nil, nil), SectionOrder: []int{1, 1}},
			wantErr: ErrBadSectionOrder,
		},
		{
			name:    "section missing from order",
			rec:     Record{Sections: arena(nil, nil, nil), SectionOrder: []int{1}},
			wantErr: ErrBadSectionOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAncestors(t *testing.T) {
	rec := Record{Sections: arena(nil, IntPtr(0), IntPtr(1), IntPtr(0))}

	chain, err := rec.Ancestors(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, chain)

	chain, err = rec.Ancestors(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, chain)

	_, err = rec.Ancestors(4)
	assert.ErrorIs(t, err, ErrParentOutOfRange)
}

func TestMetadataGet(t *testing.T) {
	m := Metadata{Title: "T", PublishDate: "2020 Jan", Authors: "A\nB"}

	v, ok := m.Get(MetaAuthors)
	assert.True(t, ok)
	assert.Equal(t, "A\nB", v)

	_, ok = m.Get(MetaAbstract)
	assert.False(t, ok, "absent abstract")

	m.Abstract = StringPtr("")
	_, ok = m.Get(MetaAbstract)
	assert.True(t, ok, "empty abstract is present")

	_, ok = m.Get("journal")
	assert.False(t, ok)
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "", Section{}.Title())
	assert.Equal(t, "Methods", Section{Name: StringPtr("Methods")}.Title())
}
