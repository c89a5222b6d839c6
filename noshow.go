// Package noshow analyses medical appointment attendance.
//
// Usage:
//
//	import (
//	    "github.com/spektr-org/noshow/appointment"
//	    "github.com/spektr-org/noshow/engine"
//	    "github.com/spektr-org/noshow/helpers"
//	)
//
//	raw, _, err := helpers.LoadFile("appointments.csv")
//	ds := appointment.Derive(raw)
//	eng := engine.New(ds, engine.WithSampleSize(10))
//	bundle, err := eng.Query(engine.NewFilterState(genders, ageGroups, months))
//
// Derivation runs once per load and yields an immutable Dataset. Each query
// filters it by gender, age group and appointment month and returns the
// headline metrics, six aggregates and a random sample. Builders in the
// engine package turn a bundle into render-ready cards, charts and a table;
// drawing them is left to the caller.
//
// The noshow command serves the same queries over HTTP and from the shell.
package noshow
