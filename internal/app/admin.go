package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/model"
)

// ProductForm is the admin product create/update form. When ImagePath is
// set the payload goes out as multipart with the file attached.
type ProductForm struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	CategoryID  string
	Sizes       []string
	ImagePath   string
}

func (f ProductForm) payload() (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"name":        f.Name,
		"description": f.Description,
		"price":       f.Price,
		"stock":       f.Stock,
		"category":    f.CategoryID,
	}
	if len(f.Sizes) > 0 {
		payload["sizes"] = f.Sizes
	}
	if f.ImagePath != "" {
		content, err := os.ReadFile(f.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		payload["image"] = api.File{Name: filepath.Base(f.ImagePath), Content: content}
	}
	return payload, nil
}

// AdminProducts renders the catalog for the back-office.
func (a *App) AdminProducts(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	return a.Catalog(ctx)
}

// AdminAddProduct creates a product.
func (a *App) AdminAddProduct(ctx context.Context, form ProductForm) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	payload, err := form.payload()
	if err != nil {
		return err
	}
	_, err = a.addProduct.Do(ctx, payload)
	return err
}

// AdminUpdateProduct updates a product in place.
func (a *App) AdminUpdateProduct(ctx context.Context, id string, form ProductForm) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	payload, err := form.payload()
	if err != nil {
		return err
	}
	_, err = a.updateProduct.Do(ctx, api.Envelope{Path: id, Body: payload})
	return err
}

// AdminDeleteProduct removes a product.
func (a *App) AdminDeleteProduct(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	_, err := a.deleteProduct.Do(ctx, "/delete/"+id)
	return err
}

// AdminAddCategory creates a category.
func (a *App) AdminAddCategory(ctx context.Context, name string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	_, err := a.placeCategory.Do(ctx, map[string]interface{}{"name": name})
	return err
}

// AdminCategories renders the category list.
func (a *App) AdminCategories(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	categories, err := a.categories.Get(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Fprintf(a.out, "%s\t%s\n", c.ID, c.Name)
	}
	return nil
}

// AdminOrders renders every order.
func (a *App) AdminOrders(ctx context.Context) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}

	orders, err := a.allOrders.Get(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTOTAL\tPAYMENT\tSTATUS\tCUSTOMER")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\tRs. %.0f\t%s/%s\t%s\t%s\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.TotalPrice,
			o.PaymentMethod, o.PaymentStatus, o.OrderStatus, o.DeliveryInfo.Name)
	}
	return w.Flush()
}

// AdminSetOrderStatus moves an order to a new fulfilment status. Both
// status updates share one mutation base path; the suffix selects the
// endpoint.
func (a *App) AdminSetOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	_, err := a.orderStatus.Do(ctx, api.Envelope{
		Path: "/" + orderID + "/update-order-status",
		Body: map[string]interface{}{"orderStatus": status},
	})
	return err
}

// AdminSetPaymentStatus moves an order to a new payment status.
func (a *App) AdminSetPaymentStatus(ctx context.Context, orderID string, status model.PaymentStatus) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	_, err := a.paymentStatus.Do(ctx, api.Envelope{
		Path: "/" + orderID + "/update-payment-status",
		Body: map[string]interface{}{"paymentStatus": status},
	})
	return err
}
