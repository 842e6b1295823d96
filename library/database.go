// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package library

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pvfundamentals/data"
)

// Library owns the connection pool for the destination database. It acts as
// the storage sink for generated tables and as the source-of-truth for the
// ticker list.
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myLibrary.DBUrl)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool

	return nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	myLibrary.Pool.Close()
}

// NewFromDB creates a new library object connected to the given database
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	myLibrary := &Library{
		DBUrl: dbURL,
	}

	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}

	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return myLibrary, nil
}

// Write stores a generated table. When replace is set any rows from prior
// runs are deleted first; rows are then bulk loaded with CopyFrom in chunks
// of chunkSize. The delete and all inserts share one transaction so a failed
// batch never leaves a half-replaced table behind.
func (myLibrary *Library) Write(ctx context.Context, table *data.Table, replace bool, chunkSize int) error {
	conn, err := myLibrary.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			log.Error().Err(err).Str("Table", table.Name).Msg("rollback failed")
		}
	}()

	ident := tableIdent(table.Name)

	if replace {
		if _, err := tx.Exec(ctx, "DELETE FROM "+ident.Sanitize()); err != nil {
			log.Error().Err(err).Str("Table", table.Name).Msg("could not delete existing rows")
			return err
		}
	}

	if chunkSize <= 0 {
		chunkSize = len(table.Rows)
	}

	for start := 0; start < len(table.Rows); start += chunkSize {
		end := start + chunkSize
		if end > len(table.Rows) {
			end = len(table.Rows)
		}

		values := make([][]any, 0, end-start)
		for _, row := range table.Rows[start:end] {
			rowValues := make([]any, 0, len(table.Columns))
			for _, col := range table.Columns {
				rowValues = append(rowValues, row[col])
			}
			values = append(values, rowValues)
		}

		if _, err := tx.CopyFrom(ctx, ident, table.Columns, pgx.CopyFromRows(values)); err != nil {
			log.Error().Err(err).Str("Table", table.Name).Int("ChunkStart", start).Msg("copy failed")
			return err
		}
	}

	return tx.Commit(ctx)
}

func tableIdent(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}
