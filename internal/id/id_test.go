package id

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nanoidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{21}$`)

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id, err := Generate("test")
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 1000)
}

func TestGenerate_Format(t *testing.T) {
	generators := map[string]func() (string, error){
		PrefixList:     NewList,
		PrefixBook:     NewBook,
		PrefixListBook: NewListBook,
	}

	for prefix, gen := range generators {
		t.Run(prefix, func(t *testing.T) {
			id, err := gen()
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(id, prefix+"-"), id)
			assert.Regexp(t, nanoidPattern, strings.TrimPrefix(id, prefix+"-"))
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate("lb"), "lb-"))
	})
}
