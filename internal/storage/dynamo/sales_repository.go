package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// SalesRepository хранит продажи с ключом saleId и GSI по userEmail.
type SalesRepository struct {
	api       API
	table     string
	userIndex string
}

var _ domain.SalesRepository = (*SalesRepository)(nil)

func (r *SalesRepository) Upsert(ctx context.Context, sale domain.Sale) error {
	sale.Normalize()
	av, err := attributevalue.MarshalMap(sale)
	if err != nil {
		return domain.StoreError("encode sale", err)
	}
	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: av}); err != nil {
		return domain.StoreError("put sale", err)
	}
	return nil
}

// ListByUser читает продажи через вторичный индекс.
func (r *SalesRepository) ListByUser(ctx context.Context, userEmail string) ([]domain.Sale, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("userEmail = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: userEmail},
		},
	}
	if r.userIndex != "" {
		input.IndexName = aws.String(r.userIndex)
	}

	paginator := dynamodb.NewQueryPaginator(r.api, input)
	sales := make([]domain.Sale, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.StoreError("query sales", err)
		}
		batch, err := decodeSales(page.Items)
		if err != nil {
			return nil, err
		}
		sales = append(sales, batch...)
	}
	return sales, nil
}

// List сканирует всю таблицу продаж.
func (r *SalesRepository) List(ctx context.Context) ([]domain.Sale, error) {
	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{TableName: aws.String(r.table)})
	sales := make([]domain.Sale, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.StoreError("scan sales", err)
		}
		batch, err := decodeSales(page.Items)
		if err != nil {
			return nil, err
		}
		sales = append(sales, batch...)
	}
	return sales, nil
}

func (r *SalesRepository) Delete(ctx context.Context, saleID string) error {
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"saleId": &types.AttributeValueMemberS{Value: saleID}},
	})
	if err != nil {
		return domain.StoreError("delete sale", err)
	}
	return nil
}

func decodeSales(items []map[string]types.AttributeValue) ([]domain.Sale, error) {
	var batch []domain.Sale
	if err := attributevalue.UnmarshalListOfMaps(items, &batch); err != nil {
		return nil, domain.StoreError("decode sales", err)
	}
	for i := range batch {
		batch[i].Normalize()
	}
	return batch, nil
}
