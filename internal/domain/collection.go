package domain

import "fmt"

// CollectionRef names one denormalized student collection. The ordered list
// of refs configured at startup is both the probe order of the identity
// resolver and its tie-break policy when a phone exists in several
// collections.
type CollectionRef struct {
	Subject string
	Grade   string
}

func (c CollectionRef) Table() string {
	return fmt.Sprintf("students_%s_%s", c.Grade, c.Subject)
}

func (c CollectionRef) String() string {
	return c.Grade + " " + c.Subject
}

// DefaultCollections is the catalog of collections the platform ships with.
// Deployments override it through configuration.
var DefaultCollections = []CollectionRef{
	{Subject: "mathematics", Grade: "senior2"},
	{Subject: "mathematics", Grade: "senior3"},
	{Subject: "physics", Grade: "senior2"},
	{Subject: "physics", Grade: "senior3"},
	{Subject: "chemistry", Grade: "senior2"},
	{Subject: "chemistry", Grade: "senior3"},
}
