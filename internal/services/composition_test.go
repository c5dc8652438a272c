package services

import (
	"testing"

	"student-services/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateComposition(t *testing.T) {
	cases := []struct {
		name string
		c    Composition
		ok   bool
	}{
		{"minimal", Composition{PageCount: 4, ContentCount: 2, PlanCount: 2}, true},
		{"maximal", Composition{PageCount: 30, ContentCount: 28, PlanCount: 28}, true},
		{"too short", Composition{PageCount: 3, ContentCount: 1, PlanCount: 1}, false},
		{"too long", Composition{PageCount: 31, ContentCount: 29, PlanCount: 29}, false},
		{"missing content", Composition{PageCount: 6, ContentCount: 3, PlanCount: 3}, false},
		{"plan mismatch", Composition{PageCount: 6, ContentCount: 4, PlanCount: 3}, false},
		{"photos even", Composition{PageCount: 6, ContentCount: 4, PlanCount: 4, PhotoCount: 2, WithPhoto: true}, true},
		{"photos odd rounds down", Composition{PageCount: 7, ContentCount: 5, PlanCount: 5, PhotoCount: 2, WithPhoto: true}, true},
		{"too few photos", Composition{PageCount: 6, ContentCount: 4, PlanCount: 4, PhotoCount: 1, WithPhoto: true}, false},
		{"photos without flag", Composition{PageCount: 6, ContentCount: 4, PlanCount: 4, PhotoCount: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateComposition(tc.c)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidateCompositionCollectsAllProblems(t *testing.T) {
	err := ValidateComposition(Composition{PageCount: 2, ContentCount: 5, PlanCount: 1, PhotoCount: 1})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 4)
}

func TestValidateBox(t *testing.T) {
	assert.NoError(t, ValidateBox(models.Box{Left: 0, Top: 0, Width: 33.867, Height: 19.05}))
	assert.NoError(t, ValidateBox(fullTextBox))
	assert.NoError(t, ValidateBox(rightPhotoBox))

	assert.Error(t, ValidateBox(models.Box{Left: -1, Top: 0, Width: 5, Height: 5}))
	assert.Error(t, ValidateBox(models.Box{Left: 0, Top: 0, Width: 0, Height: 5}))
	assert.Error(t, ValidateBox(models.Box{Left: 30, Top: 0, Width: 4, Height: 5}))
	assert.Error(t, ValidateBox(models.Box{Left: 0, Top: 15, Width: 4, Height: 4.1}))
}

func TestOverlaps(t *testing.T) {
	assert.False(t, Overlaps(leftTextBox, rightPhotoBox), "default layout must not overlap")
	assert.True(t, Overlaps(fullTextBox, rightPhotoBox))

	a := models.Box{Left: 0, Top: 0, Width: 10, Height: 10}
	touching := models.Box{Left: 10, Top: 0, Width: 5, Height: 5}
	assert.False(t, Overlaps(a, touching))
	assert.True(t, Overlaps(a, models.Box{Left: 9.5, Top: 9.5, Width: 2, Height: 2}))
}

func TestValidatePageLayout(t *testing.T) {
	texts := []models.TextSlide{{Box: titleBox}, {Box: fullTextBox}}
	photos := []models.PhotoSlide{{Box: rightPhotoBox}}

	err := validatePageLayout(3, texts, photos)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"page 3 photo 1 overlaps text 2"}, ve.Problems)

	texts[1].Box = leftTextBox
	assert.NoError(t, validatePageLayout(3, texts, photos))
}
