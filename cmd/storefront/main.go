// Package main implements the storefront terminal client: catalog
// browsing, cart management, checkout with cash-on-delivery or a Khalti
// redirect, order history, and the admin back-office commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sajilostore/storefront/internal/api"
	"github.com/sajilostore/storefront/internal/app"
	"github.com/sajilostore/storefront/internal/checkout"
	"github.com/sajilostore/storefront/internal/config"
	"github.com/sajilostore/storefront/internal/model"
	"github.com/sajilostore/storefront/internal/notify"
)

const usage = `Usage: storefront [flags] <command> [args]

Commands:
  products                     list the catalog
  product <id>                 show one product
  cart show                    show the cart
  cart add <id> [-size S]      add one unit to the cart
  cart inc <id>                increase a line's quantity
  cart dec <id>                decrease a line's quantity
  cart rm <id>                 remove a line
  cart clear                   empty the cart
  login -email E -password P   sign in
  logout                       sign out
  register                     create an account
  whoami                       show the current session
  orders                       list my orders
  orders cancel <id>           cancel a processing order
  checkout -method cod|khalti  place the order in the cart
  admin <subcommand>           back-office commands (see 'admin help')
`

func main() {
	configPath := flag.String("config", "", "Path to config file")
	baseURL := flag.String("base-url", "", "Backend base URL override")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if v := os.Getenv("STOREFRONT_CONFIG"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	err = run(ctx, cfg, a, args)
	printNotifications(a)
	if err != nil {
		var redirect *app.RedirectError
		if errors.As(err, &redirect) {
			fmt.Fprintf(os.Stderr, "storefront: not allowed (%s)\n", redirect.To)
			os.Exit(3)
		}
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, a *app.App, args []string) error {
	switch args[0] {
	case "products":
		return a.Catalog(ctx)
	case "product":
		if len(args) < 2 {
			return fmt.Errorf("product: id required")
		}
		return a.ProductDetail(ctx, args[1])
	case "cart":
		return runCart(ctx, a, args[1:])
	case "login":
		return runLogin(ctx, a, args[1:])
	case "logout":
		return a.Logout()
	case "register":
		return runRegister(ctx, a, args[1:])
	case "whoami":
		return a.WhoAmI()
	case "orders":
		if len(args) >= 3 && args[1] == "cancel" {
			return a.CancelOrder(ctx, args[2])
		}
		return a.MyOrders(ctx)
	case "checkout":
		return runCheckout(ctx, cfg, a, args[1:])
	case "admin":
		return runAdmin(ctx, a, args[1:])
	case "help":
		flag.Usage()
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runCart(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return a.ShowCart()
	}
	switch args[0] {
	case "show":
		return a.ShowCart()
	case "add":
		fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
		size := fs.String("size", "", "Selected size")
		if len(args) < 2 {
			return fmt.Errorf("cart add: product id required")
		}
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		return a.AddToCart(ctx, args[1], *size)
	case "inc":
		if len(args) < 2 {
			return fmt.Errorf("cart inc: product id required")
		}
		a.Cart().Increase(args[1])
		return a.ShowCart()
	case "dec":
		if len(args) < 2 {
			return fmt.Errorf("cart dec: product id required")
		}
		a.Cart().Decrease(args[1])
		return a.ShowCart()
	case "rm":
		if len(args) < 2 {
			return fmt.Errorf("cart rm: product id required")
		}
		a.Cart().Remove(args[1])
		return a.ShowCart()
	case "clear":
		a.Cart().Clear()
		return nil
	default:
		return fmt.Errorf("unknown cart command %q", args[0])
	}
}

func runLogin(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("login: -email and -password are required")
	}
	return a.Login(ctx, *email, *password)
}

func runRegister(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "Full name")
	phone := fs.String("phone", "", "Phone number")
	email := fs.String("email", "", "Email")
	password := fs.String("password", "", "Password")
	confirm := fs.String("confirm", "", "Confirm password")
	referral := fs.String("referral", "", "Referral code (optional)")
	listRoles := fs.Bool("roles", false, "List selectable roles and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listRoles {
		return a.Roles(ctx)
	}
	return a.Register(ctx, api.RegisterRequest{
		Name:            *name,
		Phone:           *phone,
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *confirm,
		Referral:        *referral,
	})
}

func runCheckout(ctx context.Context, cfg *config.Config, a *app.App, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	method := fs.String("method", "", "Payment method: cod or khalti")
	name := fs.String("name", "", "Delivery name")
	address := fs.String("address", "", "Delivery address")
	phone := fs.String("phone", "", "Delivery phone")
	email := fs.String("email", "", "Delivery email")
	wait := fs.Duration("wait", 10*time.Minute, "How long to wait for the gateway return")
	if err := fs.Parse(args); err != nil {
		return err
	}

	delivery := a.PrefillDelivery(ctx)
	if *name != "" {
		delivery.Name = *name
	}
	if *address != "" {
		delivery.Address = *address
	}
	if *phone != "" {
		delivery.Phone = *phone
	}
	if *email != "" {
		delivery.Email = *email
	}

	switch *method {
	case "cod":
		return a.CheckoutCOD(ctx, delivery)
	case "khalti":
		return runKhalti(ctx, cfg, a, delivery, *wait)
	case "":
		return fmt.Errorf("checkout: please select a payment method")
	default:
		return fmt.Errorf("checkout: unknown payment method %q", *method)
	}
}

func runKhalti(ctx context.Context, cfg *config.Config, a *app.App, delivery model.DeliveryInfo, wait time.Duration) error {
	listener := checkout.NewReturnListener(cfg.ReturnListenAddr, nil)
	if err := listener.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		listener.Shutdown(shutdownCtx)
	}()

	saga, err := a.CheckoutOnline(ctx, delivery)
	if err != nil {
		return err
	}

	fmt.Printf("Open this URL to pay with Khalti:\n\n  %s\n\nWaiting for the gateway to redirect to %s ...\n",
		saga.PaymentURL, listener.URL())

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ret, err := listener.Wait(waitCtx)
	if err != nil {
		// The user never came back; the snapshot is disposable.
		a.Checkout().Abandon()
		return fmt.Errorf("no gateway return received: %w", err)
	}

	route, err := a.CompletePayment(ctx, ret)
	if err != nil {
		fmt.Printf("Payment not completed; back to %s\n", route)
		return err
	}
	fmt.Println("Payment verified. Order placed.")
	return nil
}

func runAdmin(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		fmt.Print(`Admin commands:
  admin products
  admin product-add -name N -price P -stock S -category C [-sizes S,M,L] [-image path]
  admin product-update <id> [same flags as product-add]
  admin product-delete <id>
  admin categories
  admin category-add <name>
  admin orders
  admin order-status <id> <status>
  admin payment-status <id> <status>
`)
		return nil
	}

	switch args[0] {
	case "products":
		return a.AdminProducts(ctx)
	case "product-add":
		form, err := parseProductForm(args[1:])
		if err != nil {
			return err
		}
		return a.AdminAddProduct(ctx, form)
	case "product-update":
		if len(args) < 2 {
			return fmt.Errorf("product-update: id required")
		}
		form, err := parseProductForm(args[2:])
		if err != nil {
			return err
		}
		return a.AdminUpdateProduct(ctx, args[1], form)
	case "product-delete":
		if len(args) < 2 {
			return fmt.Errorf("product-delete: id required")
		}
		return a.AdminDeleteProduct(ctx, args[1])
	case "categories":
		return a.AdminCategories(ctx)
	case "category-add":
		if len(args) < 2 {
			return fmt.Errorf("category-add: name required")
		}
		return a.AdminAddCategory(ctx, strings.Join(args[1:], " "))
	case "orders":
		return a.AdminOrders(ctx)
	case "order-status":
		if len(args) < 3 {
			return fmt.Errorf("order-status: id and status required")
		}
		return a.AdminSetOrderStatus(ctx, args[1], model.OrderStatus(args[2]))
	case "payment-status":
		if len(args) < 3 {
			return fmt.Errorf("payment-status: id and status required")
		}
		return a.AdminSetPaymentStatus(ctx, args[1], model.PaymentStatus(args[2]))
	default:
		return fmt.Errorf("unknown admin command %q", args[0])
	}
}

func parseProductForm(args []string) (app.ProductForm, error) {
	fs := flag.NewFlagSet("product", flag.ContinueOnError)
	name := fs.String("name", "", "Product name")
	description := fs.String("description", "", "Product description")
	price := fs.Float64("price", 0, "Price")
	stock := fs.Int("stock", 0, "Units in stock")
	category := fs.String("category", "", "Category id")
	sizes := fs.String("sizes", "", "Comma-separated sizes")
	image := fs.String("image", "", "Path to product image")
	if err := fs.Parse(args); err != nil {
		return app.ProductForm{}, err
	}

	form := app.ProductForm{
		Name:        *name,
		Description: *description,
		Price:       *price,
		Stock:       *stock,
		CategoryID:  *category,
		ImagePath:   *image,
	}
	if *sizes != "" {
		for _, s := range strings.Split(*sizes, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				form.Sizes = append(form.Sizes, trimmed)
			}
		}
	}
	return form, nil
}

func printNotifications(a *app.App) {
	for _, n := range a.Notifications() {
		prefix := "ok"
		if n.Level == notify.LevelError {
			prefix = "error"
		}
		fmt.Fprintf(os.Stderr, "[%s] %s\n", prefix, n.Message)
	}
}
