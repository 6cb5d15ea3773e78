// Package app wires the storefront services over a shared storage layer.
package app

import (
	"time"

	"github.com/codemart-io/storefront/internal/app/services/blog"
	"github.com/codemart-io/storefront/internal/app/services/catalog"
	"github.com/codemart-io/storefront/internal/app/services/contacts"
	"github.com/codemart-io/storefront/internal/app/services/dashboard"
	"github.com/codemart-io/storefront/internal/app/services/entitlement"
	"github.com/codemart-io/storefront/internal/app/services/identity"
	ledgersvc "github.com/codemart-io/storefront/internal/app/services/ledger"
	"github.com/codemart-io/storefront/internal/app/storage"
	"github.com/codemart-io/storefront/internal/app/storage/memory"
	"github.com/codemart-io/storefront/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Products  storage.ProductStore
	Purchases storage.PurchaseStore
	Contacts  storage.ContactStore
	Posts     storage.PostStore
	Users     storage.UserStore
}

// Options carries the policy knobs the services need.
type Options struct {
	JWTSecret            string
	TokenTTL             time.Duration
	AutoCompletePayments bool
}

// Application ties the storefront services together.
type Application struct {
	log *logger.Logger

	Catalog     *catalog.Service
	Ledger      *ledgersvc.Service
	Entitlement *entitlement.Service
	Contacts    *contacts.Service
	Blog        *blog.Service
	Identity    *identity.Service
	Dashboard   *dashboard.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Purchases == nil {
		stores.Purchases = mem
	}
	if stores.Contacts == nil {
		stores.Contacts = mem
	}
	if stores.Posts == nil {
		stores.Posts = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}

	cat := catalog.New(stores.Products, log.WithField("service", "catalog"))

	return &Application{
		log:         log,
		Catalog:     cat,
		Ledger:      ledgersvc.New(stores.Purchases, stores.Products, cat, opts.AutoCompletePayments, log.WithField("service", "ledger")),
		Entitlement: entitlement.New(stores.Purchases, stores.Products, log.WithField("service", "entitlement")),
		Contacts:    contacts.New(stores.Contacts, log.WithField("service", "contacts")),
		Blog:        blog.New(stores.Posts, log.WithField("service", "blog")),
		Identity:    identity.New(stores.Users, opts.JWTSecret, opts.TokenTTL, log.WithField("service", "identity")),
		Dashboard:   dashboard.New(stores.Products, stores.Purchases, stores.Contacts, log.WithField("service", "dashboard")),
	}
}
