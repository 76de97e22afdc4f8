package service

import "context"

type testTxRepos struct {
	products ProductRepository
}

func (t *testTxRepos) Products() ProductRepository {
	return t.products
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
