package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuestionKey(t *testing.T) {
	assert.Equal(t, QuestionKey("What do you ship?"), QuestionKey("  what   do YOU ship? "))
	assert.NotEqual(t, QuestionKey("What do you ship?"), QuestionKey("What do you sell?"))
	assert.Len(t, QuestionKey("x"), 64)
}

func TestNewAnswerCacheDefaults(t *testing.T) {
	c := NewAnswerCache(nil, "", 0)
	assert.Equal(t, DefaultKeyPrefix, c.prefix)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, "agiai:answer:generation", c.generationKey())

	c = NewAnswerCache(nil, "test", time.Second)
	assert.Equal(t, "test:generation", c.generationKey())
	assert.Equal(t, time.Second, c.ttl)
}
