package menu

// Item is a menu entry. Price is integer yen; orders snapshot it at
// placement time.
type Item struct {
	ID          int64
	Name        string
	Category    string
	Description string
	Price       int
	ImageURL    *string
	Available   bool
}
