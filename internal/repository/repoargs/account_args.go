package repoargs

type CreateAccount struct {
	Username string
	Password string
}
