package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Email string `json:"email"`
	//generation of the session the token was issued for
	Gen uint64 `json:"gen"`
	//has standard jwt field issued at, issued by etc
	jwt.RegisteredClaims
}
