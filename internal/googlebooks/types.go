package googlebooks

// volumesResponse matches the Google Books volume list response.
type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

// volumeItem is one search hit, or the body of a detail call.
type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	Description   string     `json:"description"`
	PublishedDate string     `json:"publishedDate"`
	RatingsCount  *int       `json:"ratingsCount"`
	AverageRating *float64   `json:"averageRating"`
	ImageLinks    imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}
