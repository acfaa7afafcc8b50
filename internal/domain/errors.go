package domain

import "errors"

var (
	ErrItemNotFound      = errors.New("content item not found")
	ErrScoreNotFound     = errors.New("sentiment score not found")
	ErrAggregateNotFound = errors.New("aggregate not found")
	ErrUnknownTitle      = errors.New("title not in registry")
)
