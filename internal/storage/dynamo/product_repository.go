package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProductRepository хранит товары в таблице с ключом id.
type ProductRepository struct {
	api   API
	table string
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// List сканирует таблицу целиком, проходя все страницы.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	paginator := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{TableName: aws.String(r.table)})

	products := make([]domain.Product, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.StoreError("scan products", err)
		}
		var batch []domain.Product
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, domain.StoreError("decode products", err)
		}
		for i := range batch {
			batch[i].Normalize()
		}
		products = append(products, batch...)
	}
	return products, nil
}

// Get читает товар по ключу.
func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return domain.Product{}, domain.StoreError("get product", err)
	}
	if len(out.Item) == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}

	var product domain.Product
	if err := attributevalue.UnmarshalMap(out.Item, &product); err != nil {
		return domain.Product{}, domain.StoreError("decode product", err)
	}
	product.Normalize()
	return product, nil
}

// Upsert записывает товар целиком (PutItem).
func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) error {
	product.Normalize()
	item, err := attributevalue.MarshalMap(product)
	if err != nil {
		return domain.StoreError("encode product", err)
	}
	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: item}); err != nil {
		return domain.StoreError("put product", err)
	}
	return nil
}

// Delete удаляет запись товара.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return domain.StoreError("delete product", err)
	}
	return nil
}
