package repoargs

type RepositoryName string

const (
	AccountRepoName     RepositoryName = "account"
	OrderRepoName       RepositoryName = "order"
	TransactionRepoName RepositoryName = "transaction"
)
