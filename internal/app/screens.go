package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/checkout"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/session"
)

// Catalog renders the product listing.
func (a *App) Catalog(ctx context.Context) error {
	products, err := a.products.Get(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		fmt.Fprintf(w, "%s\t%s\tRs. %.0f\t%d\t%s\n", p.ID, p.Name, p.Price, p.Stock, category)
	}
	return w.Flush()
}

// ProductDetail renders one product.
func (a *App) ProductDetail(ctx context.Context, id string) error {
	p, err := a.client.Products().Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\nRs. %.0f — %d in stock\n%s\n", p.Name, p.Price, p.Stock, p.Description)
	if len(p.Sizes) > 0 {
		fmt.Fprintf(a.out, "Sizes: %s\n", strings.Join(p.Sizes, ", "))
	}
	return nil
}

// AddToCart fetches the product and puts one unit in the cart.
func (a *App) AddToCart(ctx context.Context, productID, size string) error {
	p, err := a.client.Products().Get(ctx, productID)
	if err != nil {
		a.notify.Error(api.UserMessage(err, "Something went wrong"))
		return err
	}

	a.cart.Add(*p, size)
	a.notify.Success(fmt.Sprintf("%s added to cart", p.Name))
	return nil
}

// ShowCart renders the cart contents.
func (a *App) ShowCart() error {
	lines := a.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "No items in cart.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\tRs. %.0f\tRs. %.0f\n",
			l.ProductID, l.Name, l.Size, l.Quantity, l.Price, l.Price*float64(l.Quantity))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Total: Rs. %.0f\n", a.cart.Total())
	return nil
}

// Login authenticates, persists the token and loads the profile.
func (a *App) Login(ctx context.Context, email, password string) error {
	resp, err := a.client.Auth().Login(ctx, email, password)
	if err != nil {
		a.notify.Error(api.UserMessage(err, "Login failed"))
		return err
	}

	if err := a.session.Login(resp.Token); err != nil {
		// A token the client cannot decode leaves us cleanly logged out.
		a.notify.Error("Login failed")
		return err
	}

	a.myOrders.SetEnabled(true)
	a.allOrders.SetEnabled(true)

	if _, err := a.session.EnsureProfile(ctx); err != nil {
		a.logger.WithError(err).Warn("profile fetch failed")
	}

	a.notify.Success("Logged in")
	return nil
}

// Logout clears the session and disables the authenticated reads.
func (a *App) Logout() error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	a.myOrders.SetEnabled(false)
	a.allOrders.SetEnabled(false)
	a.cache.Drop(keyMyOrders)
	a.cache.Drop(keyAllOrders)
	a.notify.Success("Logged out")
	return nil
}

// Roles renders the account roles selectable on the register screen.
func (a *App) Roles(ctx context.Context) error {
	roles, err := a.client.Auth().Roles(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		fmt.Fprintln(a.out, r.Name)
	}
	return nil
}

// Register creates an account after local validation.
func (a *App) Register(ctx context.Context, req api.RegisterRequest) error {
	if err := validateRegister(req); err != nil {
		return err
	}

	resp, err := a.client.Auth().Register(ctx, req)
	if err != nil {
		a.notify.Error(api.UserMessage(err, "Registration failed"))
		return err
	}

	message := resp.Message
	if message == "" {
		message = "Account created"
	}
	a.notify.Success(message)
	return nil
}

func validateRegister(req api.RegisterRequest) error {
	var errs checkout.ValidationErrors
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, checkout.FieldError{Field: "name", Message: "Name is required"})
	}
	if strings.TrimSpace(req.Phone) == "" {
		errs = append(errs, checkout.FieldError{Field: "phone", Message: "Phone is required"})
	}
	if !strings.Contains(req.Email, "@") {
		errs = append(errs, checkout.FieldError{Field: "email", Message: "Invalid email"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, checkout.FieldError{Field: "password", Message: "Minimum 6 characters"})
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, checkout.FieldError{Field: "confirmPassword", Message: "Passwords do not match"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MyOrders renders the user's order history split into ongoing and past
// sections.
func (a *App) MyOrders(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	orders, err := a.myOrders.Get(ctx)
	if err != nil {
		return err
	}

	ongoing, past := splitOrders(orders)

	fmt.Fprintln(a.out, "Ongoing Orders")
	a.renderOrders(ongoing)
	fmt.Fprintln(a.out, "Completed / Cancelled Orders")
	a.renderOrders(past)
	return nil
}

func splitOrders(orders []model.Order) (ongoing, past []model.Order) {
	for _, o := range orders {
		if o.OrderStatus.Ongoing() {
			ongoing = append(ongoing, o)
		} else {
			past = append(past, o)
		}
	}
	return ongoing, past
}

func (a *App) renderOrders(orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(a.out, "  (none)")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(a.out, "  %s  %s  Rs. %.0f  %s/%s  %s\n",
			o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.TotalPrice,
			o.PaymentMethod, o.PaymentStatus, o.OrderStatus)
		for _, item := range o.Items {
			fmt.Fprintf(a.out, "    %s × %d — Rs. %.0f\n", item.Name, item.Quantity, item.Price*float64(item.Quantity))
		}
	}
}

// CancelOrder cancels one of the user's orders and refreshes the order
// history on success.
func (a *App) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	_, err := a.cancelOrder.Do(ctx, orderID+"/cancel")
	return err
}

// PrefillDelivery builds delivery defaults from the profile. It waits on
// the profile sub-state rather than assuming availability; a failed fetch
// yields empty defaults.
func (a *App) PrefillDelivery(ctx context.Context) model.DeliveryInfo {
	details, err := a.session.EnsureProfile(ctx)
	if err != nil || details == nil {
		return model.DeliveryInfo{}
	}
	return model.DeliveryInfo{
		Name:    details.Username,
		Address: details.Address,
		Phone:   details.Phone,
		Email:   details.Email,
	}
}

// CheckoutCOD places a cash-on-delivery order.
func (a *App) CheckoutCOD(ctx context.Context, delivery model.DeliveryInfo) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	return a.checkout.PlaceCOD(ctx, delivery)
}

// CheckoutOnline starts the online-payment saga and returns it so the
// caller can open the gateway URL.
func (a *App) CheckoutOnline(ctx context.Context, delivery model.DeliveryInfo) (*checkout.Saga, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	return a.checkout.InitiateOnline(ctx, delivery)
}

// CompletePayment finishes the online-payment saga on the gateway's
// return trip and returns the route to show next.
func (a *App) CompletePayment(ctx context.Context, ret checkout.GatewayReturn) (string, error) {
	return a.checkout.CompleteOnline(ctx, ret)
}

// WhoAmI renders the current session.
func (a *App) WhoAmI() error {
	identity, ok := a.session.Identity()
	if !ok {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s)\n", identity.Name, identity.Role)

	if details, state := a.session.Profile(); state == session.ProfileReady && details != nil {
		fmt.Fprintf(a.out, "%s — %s, %s\n", details.Email, details.Address, details.Phone)
	}
	return nil
}
