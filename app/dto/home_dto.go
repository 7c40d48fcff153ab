package dto

// BannerDTO is the storefront hero banner
type BannerDTO struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"image_url"`
}

// ProductDTO is a featured product card on the landing page
type ProductDTO struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	ImageURL string `json:"image_url"`
}

// HomeResponse is the landing page payload. Catalog data is hard-coded
// until the product service exists.
type HomeResponse struct {
	Banner           BannerDTO    `json:"banner"`
	Categories       []string     `json:"categories"`
	FeaturedProducts []ProductDTO `json:"featured_products"`
	User             *UserDTO     `json:"user,omitempty"`
}
