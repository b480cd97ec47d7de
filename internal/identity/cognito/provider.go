// Package cognito ищет профили покупателей в пуле пользователей Amazon Cognito.
package cognito

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	attrEmail      = "email"
	attrName       = "name"
	attrGivenName  = "given_name"
	attrFamilyName = "family_name"
	attrAddress    = "address"

	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// API — подмножество клиента Cognito Identity Provider.
type API interface {
	ListUsers(ctx context.Context, params *cognitoidentityprovider.ListUsersInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ListUsersOutput, error)
}

var _ API = (*cognitoidentityprovider.Client)(nil)

// Provider реализует domain.IdentityProvider.
type Provider struct {
	api        API
	userPoolID string
	breaker    *gobreaker.CircuitBreaker[*cognitoidentityprovider.ListUsersOutput]
	logger     *log.Entry
}

var _ domain.IdentityProvider = (*Provider)(nil)

// NewClient создаёт клиента Cognito; endpoint переопределяет адрес (localstack).
func NewClient(cfg aws.Config, endpoint string) *cognitoidentityprovider.Client {
	return cognitoidentityprovider.NewFromConfig(cfg, func(o *cognitoidentityprovider.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// New создаёт провайдера для пула userPoolID.
func New(api API, userPoolID string, logger *log.Entry) (*Provider, error) {
	if api == nil {
		return nil, errors.New("cognito client is nil")
	}
	if strings.TrimSpace(userPoolID) == "" {
		return nil, errors.New("cognito user pool id is required")
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("component", "cognito")

	return &Provider{
		api:        api,
		userPoolID: userPoolID,
		logger:     logger,
		breaker: gobreaker.NewCircuitBreaker[*cognitoidentityprovider.ListUsersOutput](gobreaker.Settings{
			Name:        "cognito",
			MaxRequests: 1,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
					Warn("circuit breaker state changed")
			},
		}),
	}, nil
}

// LookupCustomer находит пользователя по email и возвращает имя и адрес.
func (p *Provider) LookupCustomer(ctx context.Context, email string) (domain.Customer, error) {
	out, err := p.breaker.Execute(func() (*cognitoidentityprovider.ListUsersOutput, error) {
		return p.api.ListUsers(ctx, &cognitoidentityprovider.ListUsersInput{
			UserPoolId: aws.String(p.userPoolID),
			Filter:     aws.String(emailFilter(email)),
			Limit:      aws.Int32(1),
		})
	})
	if err != nil {
		return domain.Customer{}, fmt.Errorf("%w: list users: %w", domain.ErrCustomerLookup, err)
	}
	if out == nil || len(out.Users) == 0 {
		return domain.Customer{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, email)
	}

	customer := customerFromAttributes(out.Users[0].Attributes)
	if customer.Email == "" {
		customer.Email = email
	}
	return customer, nil
}

// emailFilter строит фильтр ListUsers; кавычки и обратные слэши экранируются.
func emailFilter(email string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(email)
	return fmt.Sprintf(`%s = "%s"`, attrEmail, escaped)
}

func customerFromAttributes(attrs []types.AttributeType) domain.Customer {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		values[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}

	customer := domain.Customer{Email: values[attrEmail], Name: values[attrName]}
	if customer.Name == "" {
		customer.Name = strings.TrimSpace(values[attrGivenName] + " " + values[attrFamilyName])
	}
	if raw := strings.TrimSpace(values[attrAddress]); raw != "" {
		customer.Address = parseAddress(raw)
		customer.Address.Name = customer.Name
	}
	return customer
}

// oidcAddress — формат стандартного атрибута address (OpenID Connect).
type oidcAddress struct {
	Formatted     string `json:"formatted"`
	StreetAddress string `json:"street_address"`
	Locality      string `json:"locality"`
	Region        string `json:"region"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

// parseAddress разбирает JSON-адрес; строка другого формата целиком идёт в Line1.
func parseAddress(raw string) *domain.ShippingAddress {
	var a oidcAddress
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return &domain.ShippingAddress{Line1: raw}
	}

	addr := &domain.ShippingAddress{
		City:       a.Locality,
		State:      a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
	street := a.StreetAddress
	if street == "" {
		street = a.Formatted
	}
	lines := strings.SplitN(street, "\n", 2)
	addr.Line1 = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		addr.Line2 = strings.TrimSpace(lines[1])
	}
	return addr
}
