package postgres

import "github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"

func init() {
	adapter.Register(NewAdapter())
}
