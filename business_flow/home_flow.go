package businessflow

import (
	"context"

	"github.com/nextstep/storefront/app/dto"
	"github.com/nextstep/storefront/models"
	"github.com/nextstep/storefront/utils"
)

// HomeFlow serves the storefront landing page
type HomeFlow interface {
	Home(ctx context.Context, user *models.User) (*dto.HomeResponse, error)
}

// HomeFlowImpl implements the home business flow. The catalog is static
// until a product service exists.
type HomeFlowImpl struct{}

// NewHomeFlow creates a new home flow instance
func NewHomeFlow() HomeFlow {
	return &HomeFlowImpl{}
}

func (s *HomeFlowImpl) Home(ctx context.Context, user *models.User) (*dto.HomeResponse, error) {
	resp := &dto.HomeResponse{
		Banner: dto.BannerDTO{
			Title:    "Step Into the New Season",
			Subtitle: "Fresh styles for men, women and kids",
			ImageURL: "/images/banners/season.jpg",
		},
		Categories: []string{"MEN", "WOMEN", "KIDS"},
		FeaturedProducts: []dto.ProductDTO{
			{ID: 1, Name: "Classic White Sneakers", Category: "MEN", Price: 2499, ImageURL: "/images/products/sneakers-white.jpg"},
			{ID: 2, Name: "Floral Summer Dress", Category: "WOMEN", Price: 1899, ImageURL: "/images/products/dress-floral.jpg"},
			{ID: 3, Name: "Canvas School Shoes", Category: "KIDS", Price: 999, ImageURL: "/images/products/shoes-canvas.jpg"},
		},
	}

	if user != nil {
		resp.User = utils.ToPtr(ToUserDTO(user))
	}

	return resp, nil
}
