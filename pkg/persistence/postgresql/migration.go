package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				company_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				priority INTEGER NOT NULL DEFAULT 0,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (company_id, id)
			);

			CREATE INDEX idx_workflow_definitions_active ON workflow_definitions(company_id, active, created_at);

			CREATE TABLE keyword_configs (
				company_id VARCHAR(255) NOT NULL,
				id VARCHAR(255) NOT NULL,
				keyword VARCHAR(255) NOT NULL,
				endpoint_id VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				config JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (company_id, id)
			);

			CREATE INDEX idx_keyword_configs_active ON keyword_configs(company_id, active, created_at);
		`,
		2: `
			CREATE TABLE workflow_states (
				contact_key VARCHAR(512) PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				source_config_id VARCHAR(255) NOT NULL DEFAULT '',
				current_step INTEGER NOT NULL DEFAULT 0,
				collected_data JSONB NOT NULL DEFAULT '{}',
				executed_data JSONB,
				failed_attempts INTEGER NOT NULL DEFAULT 0,
				awaiting_repeat_decision BOOLEAN NOT NULL DEFAULT FALSE,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_states_last_activity ON workflow_states(last_activity_at);

			CREATE TABLE contacts (
				contact_key VARCHAR(512) PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				phone VARCHAR(64) NOT NULL,
				interaction_count INTEGER NOT NULL DEFAULT 0,
				history_length INTEGER NOT NULL DEFAULT 0
			);
		`,
	}
}
