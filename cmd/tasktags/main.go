package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/tasktags/pkg/tasktags/admin"
	"github.com/mikepea/tasktags/pkg/tasktags/auth"
	"github.com/mikepea/tasktags/pkg/tasktags/config"
	"github.com/mikepea/tasktags/pkg/tasktags/database"
	"github.com/mikepea/tasktags/pkg/tasktags/importexport"
	"github.com/mikepea/tasktags/pkg/tasktags/models"
	"github.com/mikepea/tasktags/pkg/tasktags/tags"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/tasktags/api/swagger"
)

// @title Tasktags API
// @version 1.0
// @description Tags on tasks: grouping, case resolution and renames.

// @contact.name Tasktags Support
// @contact.url https://github.com/mikepea/tasktags

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT issued by /auth/token. Format: "Bearer {token}"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "tasktags",
		Short:         "Task tag service",
		Long:          "Serve and manage tags on tasks: grouping, case resolution and renames.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			auth.Configure(cfg.JWTSecret, cfg.TokenTTL)

			if err := database.Connect(cfg); err != nil {
				return err
			}
			if err := models.AutoMigrate(database.GetDB()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(newServeCmd(&cfg))
	root.AddCommand(newClientCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newTaskTagsCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newRenameCmd())
	root.AddCommand(newTagCmd())
	root.AddCommand(newUntagCmd())

	return root
}

// setupRouter builds the gin engine with every route registered
func setupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "tasktags",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware())

		// Tags routes (protected, rename is admin only)
		tagsHandler := tags.NewHandler(db)
		tagsHandler.RegisterRoutes(protected)

		// Import/Export routes (protected)
		importExportHandler := importexport.NewHandler(db)
		importExportHandler.RegisterRoutes(protected)

		// Admin routes (admin clients only)
		adminHandler := admin.NewHandler(db)
		adminHandler.RegisterRoutes(api.Group("/admin", auth.AuthMiddleware(), auth.RequireAdmin()))
	}

	return r
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(cfg.GinMode)
			r := setupRouter(database.GetDB())

			log.Printf("Starting tasktags server on :%s (%s)", cfg.Port, cfg.DBDriver)
			return r.Run(":" + cfg.Port)
		},
	}
}

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage API clients",
	}

	var asAdmin bool
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create an API client and print its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := models.ClientRoleClient
			if asAdmin {
				role = models.ClientRoleAdmin
			}

			client, secret, err := auth.CreateClient(database.GetDB(), args[0], role)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "client: %s\nrole:   %s\nsecret: %s\n", client.Name, client.Role, secret)
			fmt.Fprintln(cmd.OutOrStdout(), "The secret is not stored and cannot be shown again.")
			return nil
		},
	}
	add.Flags().BoolVar(&asAdmin, "admin", false, "allow the client to rename tags")

	cmd.AddCommand(add)
	return cmd
}

func newTagsCmd() *cobra.Command {
	var status, order string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags grouped by usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			activeStatus, err := tags.ParseActiveStatus(status)
			if err != nil {
				return err
			}
			groupOrder, err := tags.ParseOrder(order)
			if err != nil {
				return err
			}

			grouped, err := tags.NewService(database.GetDB()).GroupedTags(cmd.Context(), groupOrder, activeStatus)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COUNT\tNAME\tUUID")
			for _, g := range grouped {
				fmt.Fprintf(w, "%d\t%s\t%s\n", g.Count, g.Name, g.UUID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "active", "task status: active, completed or all")
	cmd.Flags().StringVar(&order, "order", "size", "order: size or name")
	return cmd
}

func parseTaskArg(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid task ID %q", s)
	}
	return uint(id), nil
}

func newTaskTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task-tags [task-id]",
		Short: "List the tags on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}

			for tag, err := range tags.NewService(database.GetDB()).TaskTags(cmd.Context(), taskID) {
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag.Name, tag.UUID)
			}
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [name]",
		Short: "Print the stored spelling of a tag name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := tags.NewService(database.GetDB()).TagWithCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename [uuid] [new-name]",
		Short: "Rename a tag and every link to it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[1] == "" {
				return tags.ErrEmptyTagName
			}
			updated, err := tags.NewService(database.GetDB()).Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q (%d links updated)\n", args[0], args[1], updated)
			return nil
		},
	}
}

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag [task-id] [name]",
		Short: "Add a tag to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}
			tag, err := tags.NewService(database.GetDB()).AddTag(cmd.Context(), taskID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tagged task %d with %s (%s)\n", taskID, tag.Name, tag.UUID)
			return nil
		},
	}
}

func newUntagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untag [task-id] [name]",
		Short: "Remove a tag from a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseTaskArg(args[0])
			if err != nil {
				return err
			}
			removed, err := tags.NewService(database.GetDB()).RemoveTag(cmd.Context(), taskID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d link(s)\n", removed)
			return nil
		},
	}
}
