package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/notification"
)

func TestBuiltin_UsesCategoryDefaults(t *testing.T) {
	p := Builtin()
	for _, c := range notification.Categories() {
		assert.Equal(t, c.Defaults(), p.Default(c))
	}
	assert.False(t, p.Sweep.IncludeAutomaticResults)
}

func TestNilPolicy_Default(t *testing.T) {
	var p *Policy
	assert.Equal(t, notification.CategoryNewPlagiarismCase.Defaults(), p.Default(notification.CategoryNewPlagiarismCase))
}

func TestNilPolicy_Overrides(t *testing.T) {
	var p *Policy
	assert.NotPanics(t, func() { _ = p.Overrides() })
	assert.Empty(t, p.Overrides())
	assert.Empty(t, Builtin().Overrides())
}

func TestLoad_File(t *testing.T) {
	p, err := Load("testdata/policy.cue")
	require.NoError(t, err)

	assert.Equal(t, notification.Defaults{WebApp: true, Email: true}, p.Default(notification.CategoryTutorialGroupDeleteUpdate))
	assert.Equal(t, notification.Defaults{}, p.Default(notification.CategoryConversationMembership))
	// untouched categories keep their defaults
	assert.Equal(t, notification.CategoryNewPlagiarismCase.Defaults(), p.Default(notification.CategoryNewPlagiarismCase))
	assert.True(t, p.Sweep.IncludeAutomaticResults)

	overrides := p.Overrides()
	require.Len(t, overrides, 2)
	assert.Equal(t, notification.CategoryTutorialGroupDeleteUpdate, overrides[0].Category)
	assert.Equal(t, notification.CategoryConversationMembership, overrides[1].Category)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.cue")
	assert.Error(t, err)
}

func TestCompile_Empty(t *testing.T) {
	p, err := Compile("empty.cue", "")
	require.NoError(t, err)
	assert.Empty(t, p.Overrides())
}

func TestCompile_UnknownCategory(t *testing.T) {
	src := `defaults: "notification.nope": {webapp: true, email: false}`
	_, err := Compile("bad.cue", src)
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "notification.nope")
}

func TestCompile_IncompleteSwitches(t *testing.T) {
	src := `defaults: "notification.user-notification.new-plagiarism-case": {webapp: true}`
	_, err := Compile("partial.cue", src)
	assert.Error(t, err)
}

func TestCompile_WrongType(t *testing.T) {
	_, err := Compile("typo.cue", `sweep: include_automatic_results: "yes"`)
	assert.Error(t, err)
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("syntax.cue", `defaults: {`)
	require.Error(t, err)
	var pe *Error
	assert.True(t, errors.As(err, &pe))
}
