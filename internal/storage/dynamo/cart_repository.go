package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CartRepository хранит позиции корзин; partition key userEmail, sort key productID.
type CartRepository struct {
	api   API
	table string
}

var _ domain.CartRepository = (*CartRepository)(nil)

func (r *CartRepository) Upsert(ctx context.Context, item domain.CartItem) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return domain.StoreError("encode cart item", err)
	}
	if _, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: av}); err != nil {
		return domain.StoreError("put cart item", err)
	}
	return nil
}

// ListByUser выбирает позиции по partition key.
func (r *CartRepository) ListByUser(ctx context.Context, userEmail string) ([]domain.CartItem, error) {
	paginator := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("userEmail = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: userEmail},
		},
	})

	items := make([]domain.CartItem, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.StoreError("query cart", err)
		}
		var batch []domain.CartItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, domain.StoreError("decode cart", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

func (r *CartRepository) Delete(ctx context.Context, userEmail, productID string) error {
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"userEmail": &types.AttributeValueMemberS{Value: userEmail},
			"productID": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return domain.StoreError("delete cart item", err)
	}
	return nil
}
