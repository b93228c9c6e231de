package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple name", input: "Foo Bar", expected: "foo-bar"},
		{name: "already a slug", input: "foo-bar", expected: "foo-bar"},
		{name: "punctuation collapsed", input: "AI/ML Tools!", expected: "ai-ml-tools"},
		{name: "leading and trailing junk", input: "  --Hello World-- ", expected: "hello-world"},
		{name: "digits kept", input: "S3 Bucket Manager", expected: "s3-bucket-manager"},
		{name: "consecutive separators", input: "a   b___c", expected: "a-b-c"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Make(tc.input))
		})
	}
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "foo-bar", WithSuffix("foo-bar", 0))
	assert.Equal(t, "foo-bar-1", WithSuffix("foo-bar", 1))
	assert.Equal(t, "foo-bar-2", WithSuffix("foo-bar", 2))
}

func TestMakeIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, "test-server", Make("Test Server"))
	}
}
