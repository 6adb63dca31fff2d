package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/invoice-drafter/internal/server"
)

// dial connects to the server named by --addr. The caller closes the conn.
func dial(c *cli.Context) (*server.Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(c.String("addr"), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", c.String("addr"), err)
	}
	return server.NewClient(conn), conn, nil
}

// call runs one InvoiceService method and prints the reply as indented JSON.
func call(c *cli.Context, method string, req any) error {
	client, conn, err := dial(c)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	var resp map[string]any
	if err := client.Call(c.Context, method, req, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArg(c *cli.Context, name string) (string, error) {
	v := c.Args().First()
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}
