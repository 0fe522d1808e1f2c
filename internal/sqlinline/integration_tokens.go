package sqlinline

const QSelectIntegrationToken = `--sql 4c9b11de-2b68-4b82-9a41-5f83a6f0c2d1
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql f1be7c30-95a4-4de2-8c6a-0d2e4bb9a718
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
