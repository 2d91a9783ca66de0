package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"lpr-service/internal/db"
	"lpr-service/internal/service"
)

var (
	operatorUsername string
	operatorPassword string
	operatorRole     string
)

var operatorCmd = &cobra.Command{
	Use:   "operator",
	Short: "Manage dashboard operators",
}

var operatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a dashboard operator",
	RunE:  runOperatorCreate,
}

func init() {
	RootCmd.AddCommand(operatorCmd)
	operatorCmd.AddCommand(operatorCreateCmd)

	operatorCreateCmd.Flags().StringVar(&operatorUsername, "username", "", "Login name (required)")
	operatorCreateCmd.Flags().StringVar(&operatorPassword, "password", "", "Password, at least 6 characters (required)")
	operatorCreateCmd.Flags().StringVar(&operatorRole, "role", "OPERATOR", "ADMIN, OPERATOR or VIEWER")
	_ = operatorCreateCmd.MarkFlagRequired("username")
	_ = operatorCreateCmd.MarkFlagRequired("password")
}

func runOperatorCreate(cmd *cobra.Command, args []string) error {
	conn, store, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	auth := service.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)
	op, err := auth.CreateOperator(cmd.Context(), operatorUsername, operatorPassword, operatorRole)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "operator %s created with role %s (id %d)\n", op.Username, op.Role, op.ID)
	return err
}
