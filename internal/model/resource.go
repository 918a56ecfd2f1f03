package model

import "time"

// Resource is a bookable entity (room, hall or equipment item) as stored
// in the `resources` table.  Capacity of zero or NULL means the resource
// places no limit on headcount.  Inactive resources stay in the table for
// referential integrity but are never offered for new bookings.
//
// Fields:
//  ID          - primary key identifier.
//  Name        - display name.
//  Description - free text description (nullable).
//  Type        - free-text category such as "room", "hall" or "equipment".
//  Capacity    - maximum headcount; nil or 0 means unconstrained.
//  Location    - where the resource lives (nullable).
//  ImageURL    - blob-store URL of the resource photo (nullable).
//  IsActive    - soft-delete flag; false means retired.
//  CategoryID  - optional reference into resource_categories.
//  CreatedAt   - timestamp of creation.
type Resource struct {
	ID          uint64
	Name        string
	Description *string
	Type        string
	Capacity    *uint32
	Location    *string
	ImageURL    *string
	IsActive    bool
	CategoryID  *uint64
	CreatedAt   time.Time
}

// Category is a row in `resource_categories`, used by the admin panel to
// group resources.
type Category struct {
	ID          uint64
	Name        string
	Description *string
	CreatedAt   time.Time
}
