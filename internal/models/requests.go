// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

package models

import "github.com/tomtom215/dobbysense/internal/sense"

// FoldInRequest is the POST /fold-in body. The list length cap is applied by
// the handler from SenseConfig.MaxGenres.
type FoldInRequest struct {
	SelectedGenres []string `json:"selectedGenres" validate:"required,min=1,dive,required,max=100"`
}

// RateRequest is the body of the rating endpoints.
type RateRequest struct {
	Rating float64 `json:"rating" validate:"finite,gte=1,lte=10"`
}

// GenreLayerRequest publishes a new genre layer. The creation time is
// assigned by the store.
type GenreLayerRequest struct {
	Name       string      `json:"name" validate:"required,max=200"`
	GenreNames []string    `json:"genre_names" validate:"required,min=1,dive,required,max=100"`
	Weight     [][]float64 `json:"weight" validate:"required,min=1,dive,required,dive,finite"`
	Bias       []float64   `json:"bias" validate:"omitempty,dive,finite"`
}

// ToModel converts the request to a FactorModel. Shape checks are left to
// FactorModel.Validate.
func (r *GenreLayerRequest) ToModel() *sense.FactorModel {
	return &sense.FactorModel{
		Name:        r.Name,
		GenreLabels: r.GenreNames,
		Weight:      r.Weight,
		Bias:        r.Bias,
	}
}
