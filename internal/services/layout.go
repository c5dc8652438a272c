package services

import (
	"fmt"

	"student-services/internal/document"
	"student-services/models"
)

const layoutEpsilon = 1e-9

// ValidateBox проверяет, что прямоугольник целиком лежит на слайде.
func ValidateBox(b models.Box) error {
	ve := &ValidationError{}
	if b.Left < 0 {
		ve.add("left must not be negative")
	}
	if b.Top < 0 {
		ve.add("top must not be negative")
	}
	if b.Width <= 0 {
		ve.add("width must be positive")
	}
	if b.Height <= 0 {
		ve.add("height must be positive")
	}
	if b.Left+b.Width > document.SlideWidthCM+layoutEpsilon {
		ve.add(fmt.Sprintf("box exceeds slide width (%.3f cm)", document.SlideWidthCM))
	}
	if b.Top+b.Height > document.SlideHeightCM+layoutEpsilon {
		ve.add(fmt.Sprintf("box exceeds slide height (%.2f cm)", document.SlideHeightCM))
	}
	return ve.orNil()
}

// Overlaps - пересекаются ли два прямоугольника (касание краями не считается).
func Overlaps(a, b models.Box) bool {
	return a.Left < b.Left+b.Width-layoutEpsilon &&
		b.Left < a.Left+a.Width-layoutEpsilon &&
		a.Top < b.Top+b.Height-layoutEpsilon &&
		b.Top < a.Top+a.Height-layoutEpsilon
}

// Стандартная раскладка, когда клиент не прислал координаты.
var (
	titleBox      = models.Box{Left: 1, Top: 0.8, Width: 31.867, Height: 2.2}
	fullTextBox   = models.Box{Left: 1, Top: 3.5, Width: 31.867, Height: 14.5}
	leftTextBox   = models.Box{Left: 1, Top: 3.5, Width: 15.4, Height: 14.5}
	rightPhotoBox = models.Box{Left: 17.4, Top: 3.5, Width: 15.467, Height: 14.5}
	coverTitleBox = models.Box{Left: 2, Top: 6, Width: 29.867, Height: 3.5}
	coverInfoBox  = models.Box{Left: 2, Top: 11, Width: 29.867, Height: 4}
)

func validatePageLayout(pageNumber int, texts []models.TextSlide, photos []models.PhotoSlide) error {
	ve := &ValidationError{}
	for i, t := range texts {
		if err := ValidateBox(t.Box); err != nil {
			ve.add(fmt.Sprintf("page %d text %d: %v", pageNumber, i+1, err))
		}
	}
	for i, p := range photos {
		if err := ValidateBox(p.Box); err != nil {
			ve.add(fmt.Sprintf("page %d photo %d: %v", pageNumber, i+1, err))
		}
		for j, t := range texts {
			if Overlaps(p.Box, t.Box) {
				ve.add(fmt.Sprintf("page %d photo %d overlaps text %d", pageNumber, i+1, j+1))
			}
		}
	}
	return ve.orNil()
}
