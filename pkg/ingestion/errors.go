// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedExtension is returned when a file extension has no grammar mapping.
	ErrUnsupportedExtension = errors.New("unsupported file extension")

	// ErrParserUnavailable is returned when a grammar is mapped but its parser
	// cannot be constructed.
	ErrParserUnavailable = errors.New("parser unavailable")

	// ErrDeliveryRejected matches any *RejectedError via errors.Is.
	ErrDeliveryRejected = errors.New("delivery rejected")

	// ErrDeliveryUnreachable is returned by a Deliverer when the receiving
	// service cannot be reached at all. It aborts the run.
	ErrDeliveryUnreachable = errors.New("delivery endpoint unreachable")
)

// RejectedError is returned by a Deliverer when the receiver understood the
// request and refused it.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("delivery rejected (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("delivery rejected (status %d): %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrDeliveryRejected) true for any RejectedError.
func (e *RejectedError) Is(target error) bool {
	return target == ErrDeliveryRejected
}

// FailureKind classifies why a file was skipped or failed.
type FailureKind string

const (
	KindUnsupportedExtension FailureKind = "unsupported_extension"
	KindParserUnavailable    FailureKind = "parser_unavailable"
	KindDeliveryRejected     FailureKind = "delivery_rejected"
	KindDeliveryUnreachable  FailureKind = "delivery_unreachable"
	KindUnexpected           FailureKind = "unexpected"
)

// Classify maps an error to its FailureKind. Anything not recognized is KindUnexpected.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrDeliveryUnreachable):
		return KindDeliveryUnreachable
	case errors.Is(err, ErrDeliveryRejected):
		return KindDeliveryRejected
	case errors.Is(err, ErrParserUnavailable):
		return KindParserUnavailable
	case errors.Is(err, ErrUnsupportedExtension):
		return KindUnsupportedExtension
	default:
		return KindUnexpected
	}
}
