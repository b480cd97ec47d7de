// Package dynamo реализует репозитории витрины поверх Amazon DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API — подмножество клиента DynamoDB, которым пользуются репозитории.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Tables задаёт имена таблиц и индексов.
type Tables struct {
	Products       string
	Carts          string
	Sales          string
	SalesUserIndex string
}

// Store объединяет клиент DynamoDB и имена таблиц.
type Store struct {
	api    API
	tables Tables
}

// New создаёт Store поверх готового клиента.
func New(api API, tables Tables) (*Store, error) {
	if api == nil {
		return nil, errors.New("dynamodb client is nil")
	}
	if tables.Products == "" || tables.Carts == "" || tables.Sales == "" {
		return nil, errors.New("dynamodb table names must not be empty")
	}
	return &Store{api: api, tables: tables}, nil
}

// NewClient создаёт клиент DynamoDB; endpoint переопределяет адрес (localstack).
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// Ping проверяет доступность всех таблиц.
func (s *Store) Ping(ctx context.Context) error {
	for _, table := range []string{s.tables.Products, s.tables.Carts, s.tables.Sales} {
		if _, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}); err != nil {
			return fmt.Errorf("describe table %s: %w", table, err)
		}
	}
	return nil
}

// Products возвращает репозиторий товаров.
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{api: s.api, table: s.tables.Products}
}

// Carts возвращает репозиторий корзин.
func (s *Store) Carts() *CartRepository {
	return &CartRepository{api: s.api, table: s.tables.Carts}
}

// Sales возвращает репозиторий продаж.
func (s *Store) Sales() *SalesRepository {
	return &SalesRepository{api: s.api, table: s.tables.Sales, userIndex: s.tables.SalesUserIndex}
}
