package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/weekly-report-agent/internal/server"
)

var (
	tokenSubject string
	tokenHours   int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the trigger endpoint",
	Long: `Signs a JWT with the JWT_SECRET environment variable for use against
POST /trigger/{phase}. Give the token to the external scheduler that
drives the weekly cycle.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "scheduler", "Caller name recorded in the request log")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 24, "Token lifetime in hours")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	secret := os.Getenv("JWT_SECRET")
	svc, err := server.NewJWTService(secret, time.Duration(tokenHours)*time.Hour)
	if err != nil {
		return err
	}

	token, err := svc.GenerateToken(tokenSubject)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
