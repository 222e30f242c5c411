package domain

// Category groups items by name. Categories are created lazily the first time
// an item references a new name and are never updated or deleted.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Item is a persisted catalog entry. CategoryID always references an existing
// Category row; ImageName is the content-addressed file name of its image.
type Item struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	CategoryID int64  `json:"category_id" db:"category_id"`
	ImageName  string `json:"image_name" db:"image_name"`
}

// ItemView is an item joined with its category name, as returned by list,
// get and search.
type ItemView struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Category  string `json:"category" db:"category"`
	ImageName string `json:"image_name" db:"image_name"`
}
