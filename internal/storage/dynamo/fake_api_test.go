package dynamo_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI — in-process имитация DynamoDB: хранит элементы по таблицам,
// отдаёт Scan/Query страницами по pageSize и позволяет внедрять ошибки.
type fakeAPI struct {
	mu       sync.Mutex
	keys     map[string][]string
	tables   map[string][]map[string]types.AttributeValue
	pageSize int
	failOn   map[string]error
	calls    map[string]int
	lastIdx  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		keys: map[string][]string{
			"products": {"id"},
			"Carts":    {"userEmail", "productID"},
			"sales":    {"saleId"},
		},
		tables:   make(map[string][]map[string]types.AttributeValue),
		pageSize: 1,
		failOn:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeAPI) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = err
}

func (f *fakeAPI) enter(op string) error {
	f.calls[op]++
	return f.failOn[op]
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeAPI) indexOf(table string, key map[string]types.AttributeValue) int {
	for i, item := range f.tables[table] {
		match := true
		for _, k := range f.keys[table] {
			if str(item[k]) != str(key[k]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	if i := f.indexOf(table, in.Key); i >= 0 {
		return &dynamodb.GetItemOutput{Item: f.tables[table][i]}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	if i := f.indexOf(table, in.Item); i >= 0 {
		f.tables[table][i] = in.Item
	} else {
		f.tables[table] = append(f.tables[table], in.Item)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	if i := f.indexOf(table, in.Key); i >= 0 {
		f.tables[table] = append(f.tables[table][:i], f.tables[table][i+1:]...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) page(items []map[string]types.AttributeValue, start map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	offset := 0
	if start != nil {
		offset, _ = strconv.Atoi(str(start["offset"]))
	}
	end := offset + f.pageSize
	if end >= len(items) {
		return items[offset:], nil
	}
	return items[offset:end], map[string]types.AttributeValue{
		"offset": &types.AttributeValueMemberS{Value: strconv.Itoa(end)},
	}
}

func (f *fakeAPI) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	items, next := f.page(f.tables[aws.ToString(in.TableName)], in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: next}, nil
}

// Query поддерживает только условие вида "attr = :value".
func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	f.lastIdx = aws.ToString(in.IndexName)

	parts := strings.Split(aws.ToString(in.KeyConditionExpression), "=")
	if len(parts) != 2 {
		return nil, fmt.Errorf("unsupported key condition %q", aws.ToString(in.KeyConditionExpression))
	}
	attr := strings.TrimSpace(parts[0])
	want := str(in.ExpressionAttributeValues[strings.TrimSpace(parts[1])])

	var matched []map[string]types.AttributeValue
	for _, item := range f.tables[aws.ToString(in.TableName)] {
		if str(item[attr]) == want {
			matched = append(matched, item)
		}
	}
	items, next := f.page(matched, in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: next}, nil
}

func (f *fakeAPI) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DescribeTable"); err != nil {
		return nil, err
	}
	if _, ok := f.keys[aws.ToString(in.TableName)]; !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{}, nil
}
