package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	pb "github.com/asakaida/skillperm/proto/skillperm/v1"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	addrFlag    string
	timeoutFlag time.Duration
	actorFlag   string
	limitFlag   int
)

var rootCmd = &cobra.Command{
	Use:           "skillpermctl",
	Short:         "Command line client for the skillperm capability service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var checkCmd = &cobra.Command{
	Use:   "check <member-id> <skill-id> <run|edit|administer>",
	Short: "Check whether a member may perform an action on a skill",
	Long: `Check whether a member may perform an action on a skill.
Pass "" as member-id for an anonymous check.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.Check(ctx, request(map[string]interface{}{
				"member_id": args[0],
				"skill_id":  args[1],
				"action":    args[2],
			}))
		})
	},
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities <member-id> <skill-id>",
	Short: "Show the stored capability and every answer for a member on a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.GetCapabilities(ctx, request(map[string]interface{}{
				"member_id": args[0],
				"skill_id":  args[1],
			}))
		})
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant <member-id> <skill-id> <None|Use|Edit|Admin>",
	Short: "Set the capability of a member on a skill (None removes the grant)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.SetPermission(ctx, request(map[string]interface{}{
				"actor_id":   actorFlag,
				"member_id":  args[0],
				"skill_id":   args[1],
				"capability": args[2],
			}))
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list <skill-id>",
	Short: "List the grants on a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.ListPermissions(ctx, request(map[string]interface{}{
				"skill_id": args[0],
			}))
		})
	},
}

var restrictCmd = &cobra.Command{
	Use:   "restrict <skill-id> <true|false>",
	Short: "Mark a skill as restricted or unrestricted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		restricted, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid restricted value %q: %w", args[1], err)
		}
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.SetRestricted(ctx, request(map[string]interface{}{
				"actor_id":   actorFlag,
				"skill_id":   args[0],
				"restricted": restricted,
			}))
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <skill-id>",
	Short: "Show the audit log of a skill, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), func(ctx context.Context, c pb.CapabilityServiceClient) (*structpb.Struct, error) {
			return c.ListAuditEvents(ctx, request(map[string]interface{}{
				"skill_id": args[0],
				"limit":    limitFlag,
			}))
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&addrFlag, "addr", "a", "localhost:50061", "Address of the skillperm gRPC server")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "Request timeout")

	grantCmd.Flags().StringVar(&actorFlag, "actor", "", "Member ID recorded as the actor in the audit log")
	_ = grantCmd.MarkFlagRequired("actor")
	restrictCmd.Flags().StringVar(&actorFlag, "actor", "", "Member ID recorded as the actor in the audit log")
	_ = restrictCmd.MarkFlagRequired("actor")
	auditCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum number of events (0 for all)")

	rootCmd.AddCommand(checkCmd, capabilitiesCmd, grantCmd, listCmd, restrictCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func request(fields map[string]interface{}) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	return s
}

// call dials the server, runs one RPC and prints the response as JSON
func call(parent context.Context, rpc func(context.Context, pb.CapabilityServiceClient) (*structpb.Struct, error)) error {
	conn, err := grpc.NewClient(addrFlag, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addrFlag, err)
	}
	defer conn.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeoutFlag)
	defer cancel()

	resp, err := rpc(ctx, pb.NewCapabilityServiceClient(conn))
	if err != nil {
		return err
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
