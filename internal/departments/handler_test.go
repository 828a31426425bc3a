package departments

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/eventops/backend/internal/models"
)

func TestCreatesCycle(t *testing.T) {
	root := uuid.New()
	mid := uuid.New()
	leaf := uuid.New()
	other := uuid.New()

	tree := []models.Department{
		{ID: root},
		{ID: mid, ParentID: &root},
		{ID: leaf, ParentID: &mid},
		{ID: other},
	}

	tests := []struct {
		name      string
		dept      uuid.UUID
		newParent uuid.UUID
		want      bool
	}{
		{"reparent root under its own leaf", root, leaf, true},
		{"reparent root under its child", root, mid, true},
		{"reparent leaf under root", leaf, root, false},
		{"reparent mid under sibling tree", mid, other, false},
		{"reparent under unknown node", mid, uuid.New(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, createsCycle(tree, tt.dept, tt.newParent))
		})
	}
}

func TestCreatesCycleSurvivesCorruptTree(t *testing.T) {
	// A pre-existing loop in the stored tree must not hang the walk.
	a := uuid.New()
	b := uuid.New()
	tree := []models.Department{
		{ID: a, ParentID: &b},
		{ID: b, ParentID: &a},
	}
	assert.False(t, createsCycle(tree, uuid.New(), a))
}
