package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/model"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

// ProductHandler bundles repositories for the product endpoints.
type ProductHandler struct {
	Products   *repository.ProductRepo
	Categories *repository.CategoryRepo
}

func NewProductHandler(p *repository.ProductRepo, cat *repository.CategoryRepo) *ProductHandler {
	if p == nil || cat == nil {
		panic("nil repository passed to NewProductHandler")
	}
	return &ProductHandler{Products: p, Categories: cat}
}

type productReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url"`
	Stock       uint32  `json:"stock"`
	CategoryID  uint64  `json:"category_id"`
}

type productResp struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
	Stock       uint32  `json:"stock"`
	Rating      float64 `json:"rating"`
	CategoryID  uint64  `json:"category_id"`
	SellerID    uint64  `json:"seller_id"`
}

func toProductResp(p model.Product) productResp {
	return productResp{
		ID: p.ID, Name: p.Name, Description: p.Description, Price: p.Price,
		ImageURL: p.ImageURL, Stock: p.Stock, Rating: p.Rating,
		CategoryID: p.CategoryID, SellerID: p.SellerID,
	}
}

// Create handles POST /v1/products (seller only, enforced at the route).
// The product is owned by the authenticated seller; the referenced
// category must exist and be active.
func (h *ProductHandler) Create(c echo.Context) error {
	sellerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price <= 0 || req.CategoryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, positive price and category_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Categories.GetActiveByID(ctx, req.CategoryID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	p := model.Product{
		Name: req.Name, Description: req.Description, Price: req.Price,
		ImageURL: req.ImageURL, Stock: req.Stock, CategoryID: req.CategoryID,
		SellerID: sellerID, IsActive: true,
	}
	if err := h.Products.Create(ctx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
	}
	return c.JSON(http.StatusCreated, toProductResp(p))
}

// List handles GET /v1/products. Only active products are visible.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	products, err := h.Products.ListActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/products/:id. Inactive products look absent.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.GetActiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Update handles PUT /v1/products/:id. Only the owning seller or an
// admin may modify a product; the derived rating cannot be set here.
func (h *ProductHandler) Update(c echo.Context) error {
	p, done := h.loadOwned(c)
	if done {
		return nil
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price <= 0 || req.CategoryID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, positive price and category_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Categories.GetActiveByID(ctx, req.CategoryID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	p.Name, p.Description, p.Price = req.Name, req.Description, req.Price
	p.ImageURL, p.Stock, p.CategoryID = req.ImageURL, req.Stock, req.CategoryID
	if err := h.Products.Update(ctx, &p); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}

// Delete handles DELETE /v1/products/:id. Soft delete only: the row stays
// and its reviews keep their history.
func (h *ProductHandler) Delete(c echo.Context) error {
	p, done := h.loadOwned(c)
	if done {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Products.Deactivate(ctx, p.ID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// loadOwned fetches the addressed product and enforces the ownership
// rule shared by Update and Delete: the owning seller or any admin. The
// existence check runs first, so inactive products yield 404 rather than
// leaking through a 403. When done is true a response has been written.
func (h *ProductHandler) loadOwned(c echo.Context) (p model.Product, done bool) {
	callerID, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return p, true
	}
	callerRole, err := getRole(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return p, true
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		return p, true
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err = h.Products.GetActiveByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return p, true
	}
	if callerRole != model.RoleAdmin && p.SellerID != callerID {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return p, true
	}
	return p, false
}
