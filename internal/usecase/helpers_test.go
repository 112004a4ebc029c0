package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/orange-finance/odeploy/internal/adapters/repository/deployments"
	"github.com/orange-finance/odeploy/internal/domain"
	"github.com/orange-finance/odeploy/internal/domain/config"
	"github.com/orange-finance/odeploy/internal/domain/models"
	"github.com/orange-finance/odeploy/internal/recipes"
	"github.com/orange-finance/odeploy/internal/usecase"
	"github.com/orange-finance/odeploy/pkg/solc"
	"github.com/orange-finance/odeploy/pkg/upgrades"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEnv = "arbitrum"

var (
	deployer  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	admin     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	feed      = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	kyberswap = common.HexToAddress("0x6131B5fae19EA4f9D964eAc0408E4408b66337b5")
	balancer  = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")

	proxyAddr = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	implV1    = common.HexToAddress("0x0000000000000000000000000000000000000b02")
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Chain

type sentTx struct {
	To   common.Address
	Data []byte
}

// fakeChain deploys to sequential addresses and records every transaction.
type fakeChain struct {
	mu       sync.Mutex
	n        int64
	deploys  [][]byte
	txs      []sentTx
	attempts []sentTx // every Transact call, reverted ones included
	storage  map[common.Address]map[common.Hash][]byte
	code     map[common.Address][]byte
	results  map[string][]byte // keyed by selector hex
	// failSelector makes Transact revert for calls to that method.
	failSelector []byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		storage: make(map[common.Address]map[common.Hash][]byte),
		code:    make(map[common.Address][]byte),
		results: make(map[string][]byte),
	}
}

func (c *fakeChain) setSlot(address common.Address, slot common.Hash, value common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storage[address] == nil {
		c.storage[address] = make(map[common.Hash][]byte)
	}
	c.storage[address][slot] = common.LeftPadBytes(value.Bytes(), 32)
}

func (c *fakeChain) failOn(contractABI abi.ABI, method string) {
	c.failSelector = contractABI.Methods[method].ID
}

func (c *fakeChain) Deployer() common.Address { return deployer }

func (c *fakeChain) ChainID(context.Context) (uint64, error) { return 42161, nil }

func (c *fakeChain) Deploy(ctx context.Context, initCode []byte) (*models.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	address := common.BigToAddress(big.NewInt(0x1000 + c.n))
	c.deploys = append(c.deploys, initCode)
	c.code[address] = initCode
	return &models.Receipt{
		TxHash:          common.BigToHash(big.NewInt(c.n)).Hex(),
		ContractAddress: address.Hex(),
		BlockNumber:     uint64(c.n),
	}, nil
}

func (c *fakeChain) Transact(ctx context.Context, to common.Address, data []byte) (*models.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, sentTx{To: to, Data: data})
	if c.failSelector != nil && len(data) >= 4 && string(data[:4]) == string(c.failSelector) {
		return nil, fmt.Errorf("execution reverted")
	}
	c.n++
	c.txs = append(c.txs, sentTx{To: to, Data: data})
	return &models.Receipt{TxHash: common.BigToHash(big.NewInt(c.n)).Hex(), BlockNumber: uint64(c.n)}, nil
}

func (c *fakeChain) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.results[common.Bytes2Hex(data[:4])]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return out, nil
}

func (c *fakeChain) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code[address], nil
}

func (c *fakeChain) StorageAt(ctx context.Context, address common.Address, slot common.Hash) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.storage[address][slot]; ok {
		return v, nil
	}
	return make([]byte, 32), nil
}

// methods returns the method names of every transaction sent.
func (c *fakeChain) methods(contractABI abi.ABI) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.txs))
	for _, tx := range c.txs {
		m, err := contractABI.MethodById(tx.Data)
		if err != nil {
			out = append(out, "?")
			continue
		}
		out = append(out, m.Name)
	}
	return out
}

// Contracts

const uupsFragments = `
	{"type":"function","name":"upgradeToAndCall","stateMutability":"payable","inputs":[{"name":"newImplementation","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"proxiableUUID","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"setOwner","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"enabled","type":"bool"}],"outputs":[]}`

const (
	quoterABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"l2SequencerUptimeFeed","type":"address"}]},
	{"type":"function","name":"setStalenessThreshold","stateMutability":"nonpayable","inputs":[{"name":"feed","type":"address"},{"name":"threshold","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`
	swapProxyABI = `[
	{"type":"function","name":"setTrustedProvider","stateMutability":"nonpayable","inputs":[{"name":"provider","type":"address"},{"name":"trusted","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setOwner","stateMutability":"nonpayable","inputs":[{"name":"owner","type":"address"}],"outputs":[]}
]`
	vaultABI = `[` + uupsFragments + `,
	{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"admin","type":"address"}],"outputs":[]}
]`
	vaultV2ABI = `[` + uupsFragments + `,
	{"type":"function","name":"initializeV2","stateMutability":"nonpayable","inputs":[{"name":"balancer","type":"address"}],"outputs":[]},
	{"type":"function","name":"setProxyWhitelist","stateMutability":"nonpayable","inputs":[{"name":"proxy","type":"address"},{"name":"whitelisted","type":"bool"}],"outputs":[]}
]`
	vaultV2_1ABI = `[` + uupsFragments + `,
	{"type":"function","name":"initializeV2_1","stateMutability":"nonpayable","inputs":[{"name":"poolAdapter","type":"address"}],"outputs":[]}
]`
	erc1967ProxyABI = `[
	{"type":"constructor","stateMutability":"payable","inputs":[{"name":"implementation","type":"address"},{"name":"_data","type":"bytes"}]}
]`
)

var layoutTypes = map[string]solc.StorageLayoutType{
	"t_address": {Encoding: "inplace", Label: "address", NumberOfBytes: 20},
	"t_uint256": {Encoding: "inplace", Label: "uint256", NumberOfBytes: 32},
}

func storageLayout(vars ...string) *solc.StorageLayout {
	l := &solc.StorageLayout{Types: layoutTypes}
	for i, v := range vars {
		label, typ, _ := strings.Cut(v, ":")
		l.Storage = append(l.Storage, solc.StorageLayoutEntry{
			Contract: "src/Vault.sol:Vault",
			Label:    label,
			Slot:     uint(i),
			Type:     typ,
		})
	}
	return l
}

// contractDef describes a fixture artifact
type contractDef struct {
	Name     string
	ABI      string
	Bytecode string
	Layout   *solc.StorageLayout
	// Members are AST nodes of the contract body, scanned for unsafe code.
	Members []*solc.AstNode
}

type fakeContracts struct {
	byName map[string]*models.Contract
	index  upgrades.ContractIndex
}

func newFakeContracts(t *testing.T, defs ...contractDef) *fakeContracts {
	t.Helper()
	f := &fakeContracts{byName: make(map[string]*models.Contract), index: make(upgrades.ContractIndex)}
	for i, def := range defs {
		parsed, err := abi.JSON(strings.NewReader(def.ABI))
		require.NoError(t, err, def.Name)

		id := 100 + i
		ast := &solc.Ast{
			AbsolutePath: "src/" + def.Name + ".sol",
			NodeType:     "SourceUnit",
			Nodes: []*solc.AstNode{{
				ID:                      id,
				NodeType:                "ContractDefinition",
				Name:                    def.Name,
				Kind:                    "contract",
				LinearizedBaseContracts: []int{id},
				Children:                def.Members,
			}},
		}
		f.index.Add(ast)

		artifact := &solc.ForgeArtifact{
			Abi:           parsed,
			Bytecode:      solc.CompilerOutputBytecode{Object: def.Bytecode},
			StorageLayout: def.Layout,
			Ast:           ast,
		}
		artifact.Metadata.Compiler.Version = "0.8.24"
		f.byName[def.Name] = &models.Contract{
			Name:     def.Name,
			Path:     "src/" + def.Name + ".sol",
			Artifact: artifact,
		}
	}
	return f
}

func (f *fakeContracts) GetContract(ctx context.Context, key string) (*models.Contract, error) {
	name := key
	if i := strings.LastIndex(key, ":"); i >= 0 {
		name = key[i+1:]
	}
	c, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, key)
	}
	return c, nil
}

func (f *fakeContracts) ContractIndex(context.Context) (upgrades.ContractIndex, error) {
	return f.index, nil
}

func (f *fakeContracts) abi(t *testing.T, name string) abi.ABI {
	t.Helper()
	c, ok := f.byName[name]
	require.True(t, ok, "no fixture contract %s", name)
	return c.Artifact.Abi
}

func testContracts(t *testing.T) *fakeContracts {
	return newFakeContracts(t,
		contractDef{Name: "ChainlinkQuoter", ABI: quoterABI, Bytecode: "0x60806040520001"},
		contractDef{Name: "OrangeKyberswapProxy", ABI: swapProxyABI, Bytecode: "0x60806040520002"},
		contractDef{Name: "ReserveProxy", ABI: `[]`, Bytecode: "0x60806040520003"},
		contractDef{Name: "Vault", ABI: vaultABI, Bytecode: "0x60806040520004", Layout: storageLayout("owner:t_address")},
		contractDef{Name: "OrangeStrykeLPAutomatorV2", ABI: vaultV2ABI, Bytecode: "0x60806040520005",
			Layout: storageLayout("owner:t_address", "balancer:t_address")},
		contractDef{Name: "OrangeStrykeLPAutomatorV2_1", ABI: vaultV2_1ABI, Bytecode: "0x60806040520006",
			Layout: storageLayout("owner:t_address", "balancer:t_address", "poolAdapter:t_address")},
		contractDef{Name: "UnsafeVault", ABI: vaultABI, Bytecode: "0x60806040520007", Layout: storageLayout("owner:t_address"),
			Members: []*solc.AstNode{{ID: 900, NodeType: "FunctionDefinition", Kind: "constructor"}}},
		contractDef{Name: "ERC1967Proxy", ABI: erc1967ProxyABI, Bytecode: "0x60806040520008"},
	)
}

// Parameters

type fakeParams map[string][]*models.ParameterSet

func (f fakeParams) LoadParameterSets(ctx context.Context, environment string) ([]*models.ParameterSet, error) {
	return f[environment], nil
}

func (f fakeParams) add(kind, env, unit string, raw map[string]any) {
	f[env] = append(f[env], &models.ParameterSet{
		ParameterKey: models.ParameterKey{Kind: kind, Environment: env, Unit: unit},
		Path:         fmt.Sprintf("deploy/parameters/%s/%s/%s.yaml", kind, env, unit),
		Raw:          raw,
	})
}

// Verifier and confirmer

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Provider() string { return config.VerifierTenderly }

func (m *mockVerifier) Verify(ctx context.Context, req usecase.VerificationRequest) (string, error) {
	args := m.Called(req.Address)
	return args.String(0), args.Error(1)
}

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	args := m.Called(prompt)
	return args.Bool(0), args.Error(1)
}

// Harness

type harness struct {
	cfg       *config.RuntimeConfig
	repo      *deployments.MemoryRepository
	contracts *fakeContracts
	chain     *fakeChain
	params    fakeParams
	verifier  *mockVerifier
	confirmer *mockConfirmer
	recipes   *recipes.Registry
}

func newHarness(t *testing.T, seed ...*models.Deployment) *harness {
	return &harness{
		cfg: &config.RuntimeConfig{
			Environment: &config.Environment{Name: testEnv, ChainID: 42161},
			ProjectConfig: &config.ProjectConfig{
				Environments: map[string]config.EnvironmentConfig{
					testEnv:         {ChainID: 42161},
					"arbitrum_dev":  {ChainID: 42161},
					"arbitrum_prod": {ChainID: 42161, Production: true},
					"anvil":         {ChainID: 31337},
				},
			},
		},
		repo:      deployments.NewMemoryRepository(seed...),
		contracts: testContracts(t),
		chain:     newFakeChain(),
		params:    make(fakeParams),
		verifier:  &mockVerifier{},
		confirmer: &mockConfirmer{},
		recipes:   recipes.NewRegistry(),
	}
}

func (h *harness) production() {
	h.cfg.Environment = &config.Environment{Name: "arbitrum_prod", ChainID: 42161, Production: true}
}

func (h *harness) executor() *usecase.ExecuteDeployment {
	return usecase.NewExecuteDeployment(h.cfg, h.repo, h.contracts, h.chain, discard)
}

func (h *harness) configurator() *usecase.ConfigureDeployment {
	return usecase.NewConfigureDeployment(h.repo, h.contracts, h.chain, discard)
}

func (h *harness) verification() *usecase.VerifyDeployment {
	return usecase.NewVerifyDeployment(h.cfg, h.repo, h.contracts, h.verifier, discard)
}

func (h *harness) resolver() *usecase.ResolveParameters {
	return usecase.NewResolveParameters(h.cfg, h.params, h.recipes)
}

func (h *harness) planner(resolver *usecase.ResolveParameters) *usecase.PlanUnit {
	return usecase.NewPlanUnit(h.cfg, resolver, usecase.NewLookupDependencies(h.repo), h.recipes, h.chain)
}

func (h *harness) deployUnits() *usecase.DeployUnits {
	resolver := h.resolver()
	return usecase.NewDeployUnits(
		h.cfg,
		resolver,
		h.planner(resolver),
		h.executor(),
		h.configurator(),
		h.verification(),
		h.recipes,
		h.confirmer,
		usecase.NopProgress{},
		discard,
	)
}

func (h *harness) save(t *testing.T, d *models.Deployment) {
	t.Helper()
	require.NoError(t, h.repo.SaveDeployment(context.Background(), d))
}

func (h *harness) record(t *testing.T, id string) *models.Deployment {
	t.Helper()
	d, err := h.repo.GetDeployment(context.Background(), testEnv, id)
	require.NoError(t, err)
	return d
}

// vaultAtStep0 is WETH-USDC deployed behind a UUPS proxy at upgrade index 0,
// with the implementation slot matching the record.
func vaultAtStep0(h *harness) *models.Deployment {
	h.chain.setSlot(proxyAddr, usecase.ImplementationSlot, implV1)
	return &models.Deployment{
		ID:           "WETH-USDC",
		Environment:  testEnv,
		ChainID:      42161,
		Kind:         "automator-v1_1",
		ContractName: "OrangeStrykeLPAutomatorV1_1",
		Address:      proxyAddr.Hex(),
		Type:         models.ProxyDeployment,
		Version:      "1.1.0",
		ProxyInfo: &models.ProxyInfo{
			Kind:             string(models.ProxyKindUUPS),
			Implementation:   implV1.Hex(),
			ImplementationID: "WETH-USDCV1_1_Implementation",
			UpgradeIndex:     0,
		},
		StorageLayout: storageLayout("owner:t_address"),
		Verification:  models.VerificationInfo{Status: models.VerificationStatusVerified},
	}
}
