package service

import (
	"context"
	"testing"

	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
)

func candidateNames(cs []Candidate) map[valueobject.ArgumentMode][]string {
	out := make(map[valueobject.ArgumentMode][]string)
	for _, c := range cs {
		out[c.Mode] = append(out[c.Mode], c.Method.Name)
	}
	return out
}

func TestCompatibilityValidator_StaticCandidates(t *testing.T) {
	v := NewCompatibilityValidator(newTestCatalog(t))

	got := candidateNames(v.StaticCandidates("Game.Player", CandidateOptions{}))

	assert.ElementsMatch(t, []string{"Jump"}, got[valueobject.ArgumentModeVoid])
	assert.ElementsMatch(t, []string{"SetHealth", "OnScore", "OnAny", "set_Lives"}, got[valueobject.ArgumentModeInt])
	assert.ElementsMatch(t, []string{"SetSpeed", "OnAny"}, got[valueobject.ArgumentModeFloat])
	assert.ElementsMatch(t, []string{"Rename", "OnAny"}, got[valueobject.ArgumentModeString])
	assert.ElementsMatch(t, []string{"SetIdle", "OnAny"}, got[valueobject.ArgumentModeBool])
	assert.ElementsMatch(t, []string{"Equip", "OnAny"}, got[valueobject.ArgumentModeObject])

	for _, names := range got {
		assert.NotContains(t, names, "Legacy")
		assert.NotContains(t, names, "set_OldLives")
		assert.NotContains(t, names, "Store")
		assert.NotContains(t, names, "GetScore")
		assert.NotContains(t, names, "set_enabled")
	}
}

func TestCompatibilityValidator_StaticCandidatesWithEngineMembers(t *testing.T) {
	v := NewCompatibilityValidator(newTestCatalog(t))

	got := candidateNames(v.StaticCandidates("Game.Player", CandidateOptions{IncludeEngineMembers: true}))

	assert.Contains(t, got[valueobject.ArgumentModeBool], "set_enabled")
	assert.Contains(t, got[valueobject.ArgumentModeVoid], "StopAllCoroutines")
}

func TestCompatibilityValidator_DynamicCandidates(t *testing.T) {
	v := NewCompatibilityValidator(newTestCatalog(t))

	got := candidateNames(v.DynamicCandidates("Game.Player", []string{typesystem.TypeInt}, CandidateOptions{}))
	assert.ElementsMatch(t, []string{"SetHealth", "OnScore", "OnAny", "set_Lives"}, got[valueobject.ArgumentModeEventDefined])

	assert.Empty(t, v.DynamicCandidates("Game.Player", nil, CandidateOptions{}))
}

func TestCompatibilityValidator_CandidatesFor(t *testing.T) {
	v := NewCompatibilityValidator(newTestCatalog(t))
	ctx := context.Background()

	call := entity.NewPersistentCall(entity.PersistentCallParams{
		Target:          playerTarget(),
		MethodName:      "Fly",
		Mode:            valueobject.ArgumentModeEventDefined,
		ArgTypes:        []string{typesystem.TypeInt},
		EventName:       "onScore",
		EventScriptGUID: buttonGUID,
		State:           valueobject.CallStateInvalidMethod,
	})
	got := candidateNames(v.CandidatesFor(ctx, call, CandidateOptions{}))
	assert.Contains(t, got[valueobject.ArgumentModeEventDefined], "OnScore")
	assert.Contains(t, got[valueobject.ArgumentModeVoid], "Jump")

	engine := entity.NewPersistentCall(entity.PersistentCallParams{
		Target:     valueobject.NewLocalReference("5", "", ""),
		MethodName: "SetActive",
		Mode:       valueobject.ArgumentModeBool,
	})
	assert.Empty(t, v.CandidatesFor(ctx, engine, CandidateOptions{}))
}
