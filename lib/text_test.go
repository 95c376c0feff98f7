package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "vito-backend", Slugify("VITO Backend"))
	assert.Equal(t, "https-openeo-example-com-v1", Slugify("https://openeo.example.com/v1"))
}
