package landing

import (
	"testing"

	"github.com/beshoynasry/estates/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	items := make([]model.NewsItem, 8)
	p := NewPage(items)
	assert.Len(t, p.Headlines, MaxHeadlines)
	assert.Equal(t, HomeAnimation, p.Animation)
	assert.Equal(t, "hero", p.Sections[0].ID)
	assert.Len(t, p.Sections, 6)
}

func TestAnimationJSON(t *testing.T) {
	assert.JSONEq(t, `{"duration":1200,"easing":"ease-in-out","once":false,"mirror":true}`, ProjectsAnimation.JSON())
}
