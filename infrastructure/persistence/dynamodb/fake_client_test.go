package dynamodb

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"
)

// memoryTable is an in-memory single-table DBClient. It understands the
// expressions GenericRepository emits: SET lists, attribute_exists on the
// key, and equality filters joined with AND.
type memoryTable struct {
	mu         sync.Mutex
	items      map[string]map[string]types.AttributeValue
	pageSize   int
	batchSizes []int
}

func newMemoryTable(pageSize int) *memoryTable {
	return &memoryTable{items: make(map[string]map[string]types.AttributeValue), pageSize: pageSize}
}

func idOf(key map[string]types.AttributeValue) string {
	if s, ok := key["id"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (m *memoryTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[idOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (m *memoryTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[idOf(in.Item)] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *memoryTable) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := idOf(in.Key)
	item, ok := m.items[id]
	if !ok && in.ConditionExpression != nil {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	if !ok {
		item = copyItem(in.Key)
	}

	body := strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET ")
	for _, clause := range strings.Split(body, ", ") {
		parts := strings.SplitN(clause, " = ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unsupported clause %q", clause)
		}
		name := parts[0]
		if strings.HasPrefix(name, "#") {
			resolved, ok := in.ExpressionAttributeNames[name]
			if !ok {
				return nil, fmt.Errorf("unbound name placeholder %s", name)
			}
			name = resolved
		} else if IsReservedWord(name) {
			return nil, fmt.Errorf("ValidationException: reserved keyword %s", name)
		}
		value, ok := in.ExpressionAttributeValues[parts[1]]
		if !ok {
			return nil, fmt.Errorf("unbound value placeholder %s", parts[1])
		}
		item[name] = value
	}

	m.items[id] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (m *memoryTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idOf(in.Key)
	old, ok := m.items[id]
	if !ok {
		return &dynamodb.DeleteItemOutput{}, nil
	}
	delete(m.items, id)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (m *memoryTable) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	items, last, _, err := m.page(in.KeyConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.ExclusiveStartKey, in.Limit)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: last, Count: int32(len(items))}, nil
}

func (m *memoryTable) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	items, last, _, err := m.page(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, in.ExclusiveStartKey, in.Limit)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.ScanOutput{LastEvaluatedKey: last, Count: int32(len(items))}
	if in.Select != types.SelectCount {
		out.Items = items
	}
	return out, nil
}

func (m *memoryTable) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, requests := range in.RequestItems {
		m.batchSizes = append(m.batchSizes, len(requests))
		for _, req := range requests {
			m.items[idOf(req.PutRequest.Item)] = copyItem(req.PutRequest.Item)
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

// page walks items in id order. Limit counts evaluated items, as in DynamoDB.
func (m *memoryTable) page(
	cond *string,
	names map[string]string,
	values map[string]types.AttributeValue,
	start map[string]types.AttributeValue,
	limit *int32,
) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	budget := m.pageSize
	if limit != nil && int(*limit) < budget {
		budget = int(*limit)
	}

	after := idOf(start)
	var (
		matched   []map[string]types.AttributeValue
		evaluated int
		lastID    string
	)
	for _, id := range ids {
		if after != "" && id <= after {
			continue
		}
		if evaluated == budget {
			return matched, map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: lastID}}, evaluated, nil
		}
		evaluated++
		lastID = id

		ok, err := matches(m.items[id], aws.ToString(cond), names, values)
		if err != nil {
			return nil, nil, 0, err
		}
		if ok {
			matched = append(matched, copyItem(m.items[id]))
		}
	}
	return matched, nil, evaluated, nil
}

func matches(item map[string]types.AttributeValue, cond string, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if cond == "" {
		return true, nil
	}
	for _, term := range strings.Split(cond, " AND ") {
		term = strings.Trim(term, "()")
		parts := strings.SplitN(term, " = ", 2)
		if len(parts) != 2 {
			return false, fmt.Errorf("unsupported condition %q", term)
		}
		name := names[parts[0]]

		var want, got interface{}
		if err := attributevalue.Unmarshal(values[parts[1]], &want); err != nil {
			return false, err
		}
		av, ok := item[name]
		if !ok {
			return false, nil
		}
		if err := attributevalue.Unmarshal(av, &got); err != nil {
			return false, err
		}
		if !reflect.DeepEqual(want, got) {
			return false, nil
		}
	}
	return true, nil
}

// mockDBClient is a testify mock for failure paths
type mockDBClient struct {
	mock.Mock
}

func (m *mockDBClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *mockDBClient) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.BatchWriteItemOutput)
	return out, args.Error(1)
}
