package service

import (
	"strconv"
	"time"
)

var careers = []string{
	"Ing. en Informática",
	"Abogacía",
	"Lic. en Economía",
	"Lic. en Marketing",
	"Física",
	"Química",
	"Lic. en Finanzas",
	"Lic. en Negocios Digitales",
}

var academicYears = []string{"1º Año", "2º Año", "3º Año", "4º Año", "5º Año"}

const gradYearsAhead = 8

// OptionsService serves the static choice lists shown during onboarding.
type OptionsService struct {
	now func() time.Time
}

func NewOptionsService() *OptionsService {
	return &OptionsService{now: time.Now}
}

func (s *OptionsService) Careers() []string {
	return append([]string(nil), careers...)
}

func (s *OptionsService) Years() []string {
	return append([]string(nil), academicYears...)
}

// GradYears returns the current year and the seven after it.
func (s *OptionsService) GradYears() []string {
	current := s.now().Year()
	out := make([]string, 0, gradYearsAhead)
	for i := 0; i < gradYearsAhead; i++ {
		out = append(out, strconv.Itoa(current+i))
	}
	return out
}
